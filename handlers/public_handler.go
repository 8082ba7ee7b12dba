package handlers

import (
	"net/http"

	"github.com/fina4you/entitlement-api/utils"
)

const (
	publicMessage  = "This is a public endpoint accessible to everyone."
	privateMessage = "Only authenticated users can read this message."
)

// HandlePublic handles GET /public
func HandlePublic(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteText(w, http.StatusOK, publicMessage)
}

// HandlePrivate handles GET /private. Reaching it means the token verified.
func HandlePrivate(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteText(w, http.StatusOK, privateMessage)
}

// AuthSuccessRedirect handles GET /auth/success by sending the browser back
// into the app through its custom scheme.
func AuthSuccessRedirect(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}
