package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"committeesync/internal/delivery/http/controllers"
	"committeesync/internal/delivery/http/middleware"
	"committeesync/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(
	meetingController *controllers.MeetingController,
	authController *controllers.AuthController,
	verifier domain.TokenVerifier,
	logger *slog.Logger,
) *http.ServeMux {
	mux := http.NewServeMux()
	authed := middleware.RequireAuth(verifier, logger)

	// Meetings
	mux.HandleFunc("POST /meetings", authed(meetingController.CreateMeetings))
	mux.HandleFunc("PATCH /meetings", authed(meetingController.UpdateMeetings))
	mux.HandleFunc("DELETE /meetings", authed(meetingController.DeleteMeetings))
	mux.HandleFunc("GET /meetings", authed(meetingController.ListMeetings))

	// Auth
	mux.HandleFunc("POST /auth/token", authController.IssueToken)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}
