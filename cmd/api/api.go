package api

import (
	"log"
	"net/http"

	"github.com/flashnews-app/flashnews-server/service/auth"
	"github.com/flashnews-app/flashnews-server/service/collection"
	"github.com/flashnews-app/flashnews-server/service/comment"
	"github.com/flashnews-app/flashnews-server/service/like"
	"github.com/flashnews-app/flashnews-server/service/og"
	"github.com/flashnews-app/flashnews-server/service/post"
	"github.com/flashnews-app/flashnews-server/service/user"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Router() http.Handler {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api").Subrouter()

	authHandler := auth.NewHandler(s.db)
	authHandler.RegisterRoutes(subrouter)

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	postHandler := post.NewHandler(s.db)
	postHandler.RegisterRoutes(subrouter)

	commentHandler := comment.NewHandler(s.db)
	commentHandler.RegisterRoutes(subrouter)

	likeHandler := like.NewHandler(s.db)
	likeHandler.RegisterRoutes(subrouter)

	collectionHandler := collection.NewHandler(s.db)
	collectionHandler.RegisterRoutes(subrouter)

	ogHandler := og.NewHandler()
	ogHandler.RegisterRoutes(subrouter)

	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(router)
}

func (s *APIServer) Run() error {
	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, s.Router())
}
