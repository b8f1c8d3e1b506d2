package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"

	"github.com/Diamondrubix/ScrapBook/core"
	"github.com/Diamondrubix/ScrapBook/handlers/api/assets"
	"github.com/Diamondrubix/ScrapBook/handlers/api/items"
	"github.com/Diamondrubix/ScrapBook/handlers/api/locks"
	"github.com/Diamondrubix/ScrapBook/handlers/api/snapshots"
	"github.com/Diamondrubix/ScrapBook/handlers/api/thumbnails"
	"github.com/Diamondrubix/ScrapBook/handlers/auth"
	"github.com/Diamondrubix/ScrapBook/handlers/websocket"
	authMiddleware "github.com/Diamondrubix/ScrapBook/middleware"
	"github.com/Diamondrubix/ScrapBook/stores"
)

func setupRouter(store stores.Store, assetStore core.AssetStore, collab *websocket.Collab) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Origin", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"status": "ok",
			"boards": collab.ActiveBoards(),
		})
	})
	r.Post("/auth/guest", auth.HandleGuest)
	r.Get("/assets/*", assets.HandleServe(assetStore))

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.AuthJWT)

		r.Route("/boards/{boardId}", func(r chi.Router) {
			r.Get("/items", items.HandleList(store))
			r.Post("/items", items.HandleCreate(store))
			r.Get("/locks", locks.HandleList(store))
			r.Post("/assets", assets.HandleUpload(assetStore, os.Getenv("ASSET_PUBLIC_URL")))
			r.Get("/snapshots", snapshots.HandleListSnapshots(store))
			r.Post("/snapshots", snapshots.HandleCreateSnapshot(store))
			r.Get("/thumbnail.png", thumbnails.HandleThumbnail(store))
		})

		r.Route("/items/{itemId}", func(r chi.Router) {
			r.Patch("/", items.HandleUpdate(store))
			r.Delete("/", items.HandleDelete(store))
			r.Put("/lock", locks.HandleAcquire(store))
			r.Delete("/lock", locks.HandleRelease(store))
		})

		r.Route("/snapshots/{snapshotId}", func(r chi.Router) {
			r.Get("/", snapshots.HandleGetSnapshot(store))
			r.Delete("/", snapshots.HandleDeleteSnapshot(store))
			r.Post("/restore", snapshots.HandleRestoreSnapshot(store))
		})
	})

	return r
}

func waitForShutdown(srv *http.Server, ioo *socketio.Server) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	s := <-signalC
	logrus.WithField("signal", s.String()).Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ioo.Close(nil)
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("Server shutdown incomplete")
	}
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	auth.InitAuth()
	store := stores.GetStore()
	assetStore := stores.GetAssetStore()

	collab := websocket.NewCollab(store, websocket.DefaultCursorRate, websocket.DefaultCursorBurst)
	r := setupRouter(store, assetStore, collab)

	ioo := collab.SetupSocketIO()
	r.Mount("/socket.io/", ioo.ServeHandler(nil))

	srv := &http.Server{Addr: *listenAddress, Handler: r}
	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(srv, ioo)
}
