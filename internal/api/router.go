package api

import (
	"net/http"

	"github.com/erazemk/stash/internal/events"
	"github.com/erazemk/stash/internal/manager"
	"github.com/erazemk/stash/internal/model"
)

// NewRouter creates the API router with all endpoints registered. hub may be
// nil, in which case the live event feed is not served.
func NewRouter(resolver *manager.Resolver, jwtSecret string, hub *events.Hub) http.Handler {
	mux := http.NewServeMux()
	db := resolver.DB

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	stashHandler := &StashHandler{Resolver: resolver, Hub: hub}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireTeacher := RequireRole(model.RoleTeacher)

	// user is open to every authenticated user, teacher to teachers and admins.
	user := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	teacher := func(h http.HandlerFunc) http.Handler { return authMW(requireTeacher(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	mux.Handle("PUT /api/auth/password", user(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", user(authHandler.Logout))

	// Users (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Stashes.
	mux.Handle("POST /api/courses/{courseid}/stash", teacher(stashHandler.CreateStash))
	mux.Handle("GET /api/courses/{courseid}/stash", user(stashHandler.GetStash))
	mux.Handle("PUT /api/courses/{courseid}/stash", teacher(stashHandler.UpdateStash))
	mux.Handle("GET /api/courses/{courseid}/inventory", user(stashHandler.MyInventory))
	mux.Handle("GET /api/courses/{courseid}/users/{userid}/inventory", teacher(stashHandler.UserInventory))
	mux.Handle("GET /api/courses/{courseid}/events", teacher(stashHandler.Events))
	if hub != nil {
		mux.Handle("GET /api/courses/{courseid}/events/live", teacher(stashHandler.LiveEvents))
	}

	// Items: read (all roles), write (teacher+).
	mux.Handle("GET /api/courses/{courseid}/items", user(stashHandler.GetItems))
	mux.Handle("POST /api/courses/{courseid}/items", teacher(stashHandler.CreateItem))
	mux.Handle("GET /api/items/{id}", user(stashHandler.GetItem))
	mux.Handle("PUT /api/items/{id}", teacher(stashHandler.UpdateItem))
	mux.Handle("DELETE /api/items/{id}", teacher(stashHandler.DeleteItem))
	mux.Handle("PUT /api/items/{id}/image", teacher(stashHandler.UploadImage))
	mux.Handle("GET /api/items/{id}/image", user(stashHandler.GetImage))

	// Drops: students only see them through their hashcode.
	mux.Handle("GET /api/courses/{courseid}/drops", teacher(stashHandler.ListDrops))
	mux.Handle("POST /api/courses/{courseid}/drops", teacher(stashHandler.CreateDrop))
	mux.Handle("GET /api/courses/{courseid}/drops/lookup", teacher(stashHandler.FindDrop))
	mux.Handle("GET /api/drops/{id}", teacher(stashHandler.GetDrop))
	mux.Handle("PUT /api/drops/{id}", teacher(stashHandler.UpdateDrop))
	mux.Handle("DELETE /api/drops/{id}", teacher(stashHandler.DeleteDrop))
	mux.Handle("GET /api/drops/{id}/snippet", teacher(stashHandler.DropSnippet))
	mux.Handle("GET /api/drops/{id}/visible", user(stashHandler.IsDropVisible))
	mux.Handle("POST /api/drops/{id}/pickup", user(stashHandler.PickupDrop))

	// Trades.
	mux.Handle("GET /api/courses/{courseid}/trades", teacher(stashHandler.ListTrades))
	mux.Handle("POST /api/courses/{courseid}/trades", teacher(stashHandler.CreateTrade))
	mux.Handle("GET /api/courses/{courseid}/trades/lookup", teacher(stashHandler.FindTrade))
	mux.Handle("GET /api/trades/{id}", teacher(stashHandler.GetTrade))
	mux.Handle("PUT /api/trades/{id}", teacher(stashHandler.UpdateTrade))
	mux.Handle("DELETE /api/trades/{id}", teacher(stashHandler.DeleteTrade))
	mux.Handle("GET /api/trades/{id}/items", user(stashHandler.GetTradeItems))
	mux.Handle("POST /api/trades/{id}/items", teacher(stashHandler.AddTradeItem))
	mux.Handle("DELETE /api/trades/{id}/items/{itemid}", teacher(stashHandler.DeleteTradeItem))
	mux.Handle("GET /api/trades/{id}/eligibility", user(stashHandler.CanTrade))
	mux.Handle("POST /api/trades/{id}/complete", user(stashHandler.CompleteTrade))

	return mux
}
