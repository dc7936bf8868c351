package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func SetupRouter(app App) *chi.Mux {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(NewStructuredLogger(app.Logger()))
	mux.Use(middleware.Recoverer)
	mux.Use(SessionMiddleware(app))

	// Static file servers
	mux.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(app.UploadDir()))))
	mux.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("./static"))))

	// News
	mux.Get("/", MakeHandler(app, HandleHome))
	mux.Get("/news/create/", MakeHandler(app, HandleCreateNews))
	mux.Post("/news/create/", MakeHandler(app, HandleCreateNews))
	mux.Get("/news/{id}/", MakeHandler(app, HandleNewsDetail))
	mux.Post("/news/{id}/", MakeHandler(app, HandleNewsDetail))

	// Forum
	mux.Route("/forum", func(r chi.Router) {
		r.Get("/", MakeHandler(app, HandleForumIndex))
		r.Get("/cat/{id}/", MakeHandler(app, HandleCategory))
		r.Get("/cat/{id}/create/", MakeHandler(app, HandleCreateThread))
		r.Post("/cat/{id}/create/", MakeHandler(app, HandleCreateThread))
		r.Get("/thread/{id}/", MakeHandler(app, HandleThread))
		r.Post("/thread/{id}/", MakeHandler(app, HandleThread))
	})

	// Chat and reactions. Chat send answers 405 itself, so it takes every method.
	mux.Get("/chat/get/", MakeHandler(app, HandleChatGet))
	mux.HandleFunc("/chat/send/", MakeHandler(app, HandleChatSend))
	mux.With(RequireAuth).Get("/reaction/{type}/{id}/{value}/", MakeHandler(app, HandleReaction))

	mux.Get("/rules/", MakeHandler(app, HandleRules))

	// Accounts
	mux.Route("/users", func(r chi.Router) {
		r.Get("/register/", MakeHandler(app, HandleRegister))
		r.Post("/register/", MakeHandler(app, HandleRegister))
		r.Get("/login/", MakeHandler(app, HandleLogin))
		r.Post("/login/", MakeHandler(app, HandleLogin))
		r.Post("/logout/", MakeHandler(app, HandleLogout))

		r.Group(func(r chi.Router) {
			r.Use(RequireModerator(app))
			r.Get("/staff/", MakeHandler(app, HandleStaffUsers))
			r.Post("/staff/ban/{id}/", MakeHandler(app, HandleToggleBan))
		})
		r.With(RequireSuperuser(app)).Post("/staff/moderator/{id}/", MakeHandler(app, HandleToggleModerator))
	})

	// Moderation
	mux.Route("/staff", func(r chi.Router) {
		r.Use(RequireModerator(app))
		r.Get("/categories/", MakeHandler(app, HandleManageCategories))
		r.Post("/categories/", MakeHandler(app, HandleManageCategories))
		r.Post("/thread/{id}/close/", MakeHandler(app, HandleToggleClosed))
		r.Post("/delete/{type}/{id}/", MakeHandler(app, HandleDeleteContent))
		r.Get("/log/", MakeHandler(app, HandleModLog))
		r.Get("/banner/", MakeHandler(app, HandleBanner))
		r.Post("/banner/", MakeHandler(app, HandleBanner))
		r.With(RequireSuperuser(app)).Post("/backup-db/", MakeHandler(app, HandleDatabaseBackup))
	})

	mux.NotFound(MakeHandler(app, HandleNotFound))

	return mux
}
