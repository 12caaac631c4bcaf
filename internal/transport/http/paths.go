package http

import (
	"net/http"
	"strconv"

	"github.com/tessera-live/tessera/internal/domain"
)

// eventAddress extracts and sanity-checks the {addr} path value.
func eventAddress(w http.ResponseWriter, r *http.Request) (domain.Address, bool) {
	addr := domain.Address(r.PathValue("addr"))
	if !addr.Valid() {
		writeError(w, http.StatusBadRequest, codeInvalidAddress, "invalid event address")
		return "", false
	}
	return addr, true
}

// ticketPath extracts {addr} and {id} for ticket-scoped routes.
func ticketPath(w http.ResponseWriter, r *http.Request) (domain.Address, uint64, bool) {
	addr, ok := eventAddress(w, r)
	if !ok {
		return "", 0, false
	}
	tokenID, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid token id")
		return "", 0, false
	}
	return addr, tokenID, true
}
