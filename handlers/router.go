package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every route. Pages other than the shell are rendered
// client-side, so the API surface below is the whole server contract.
func NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", HomePage).Methods("GET")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static", http.FileServer(http.Dir("./static"))))
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/api/register", RegisterHandler).Methods("POST")
	r.HandleFunc("/api/login", LoginHandler).Methods("POST")
	r.HandleFunc("/api/logout", LogoutHandler).Methods("POST")
	r.HandleFunc("/api/me", MeHandler).Methods("GET")
	r.HandleFunc("/api/reset-password", ResetRequestHandler).Methods("POST")
	r.HandleFunc("/api/reset-password/confirm", ResetConfirmHandler).Methods("POST")
	r.HandleFunc("/auth/callback", AuthCallbackHandler).Methods("GET")

	r.HandleFunc("/api/posts", ShowPosts).Methods("GET")
	r.HandleFunc("/api/share", ShareSubmitHandler).Methods("POST")
	r.HandleFunc("/api/ask", AskSubmitHandler).Methods("POST")
	r.HandleFunc("/api/vote", VoteHandler).Methods("POST")
	r.HandleFunc("/api/posts/{id:[0-9]+}/comments", CommentsHandler).Methods("GET")
	r.HandleFunc("/api/posts/{id:[0-9]+}/comments", CommentSubmitHandler).Methods("POST")
	r.HandleFunc("/api/categories", GetCategories).Methods("GET")

	r.HandleFunc("/api/referrals", MyReferralsHandler).Methods("GET")
	r.HandleFunc("/api/referrals", ReferralSubmitHandler).Methods("POST")
	r.HandleFunc("/api/referrals/{id:[0-9]+}", ReferralUpdateHandler).Methods("PUT")
	r.HandleFunc("/api/referrals/{id:[0-9]+}", ReferralDeleteHandler).Methods("DELETE")

	r.HandleFunc("/ws", HandleConnections)

	return r
}
