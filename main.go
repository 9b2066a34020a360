package main

import (
	"net/http"
	"os"

	log "github.com/sirupsen/logrus"

	"sharehub/database"
	"sharehub/feed"
	"sharehub/handlers"
	"sharehub/monitoring"
	"sharehub/notify"
)

var (
	port      = os.Getenv("PORT")
	dbPath    = os.Getenv("DATABASE_PATH")
	baseURL   = os.Getenv("BASE_URL")
	notifyURL = os.Getenv("NOTIFY_FUNCTION_URL")
	notifyKey = os.Getenv("NOTIFY_FUNCTION_KEY")
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if port == "" {
		port = "4422"
	}
	if dbPath == "" {
		dbPath = "./sharehub.db"
	}
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	if err := database.InitDB(dbPath); err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer database.DB.Close()

	monitoring.Register()

	handlers.Feed = feed.NewStore()
	handlers.Feed.OnRefresh = handlers.BroadcastFeed
	handlers.BaseURL = baseURL

	if notifyURL != "" {
		handlers.Notifier = notify.NewClient(notifyURL, notifyKey)
		defer handlers.Notifier.Close()
	} else {
		log.Warn("NOTIFY_FUNCTION_URL not set, email notifications disabled")
	}

	if err := handlers.RefreshFeed(); err != nil {
		log.WithError(err).Warn("Initial feed load failed")
	}

	go handlers.HandleEvents()

	router := handlers.NewRouter()
	log.Infof("http://localhost:%s/", port)
	log.Fatal(http.ListenAndServe(":"+port, monitoring.NewServerMiddleware(router)))
}
