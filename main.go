package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"mess-backend/docs"
	"mess-backend/internal/attendance"
	"mess-backend/internal/billing"
	"mess-backend/internal/dashboard"
	"mess-backend/internal/menu"
	"mess-backend/internal/platform/auth"
	"mess-backend/internal/platform/clock"
	"mess-backend/internal/platform/config"
	"mess-backend/internal/platform/db"
	"mess-backend/internal/platform/httperr"
	"mess-backend/internal/profiles"
)

// @title                      Hostel Mess API
// @version                    1.0
// @description                Attendance, menu and billing for the hostel mess.
// @BasePath                   /api
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to config.yaml")
	flag.Parse()

	// 設定読み込み
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	log.Printf("[INFO] mode:%s version:%s", cfg.Mode, cfg.Version)

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	gin.SetMode(gin.ReleaseMode)
	httperr.UseJSONFieldNames()
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == config.ModeDev {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowCredentials: true,
		}))

		docs.SwaggerInfo.Version = cfg.Version
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	clk := clock.Real()

	authSvc := auth.NewService(auth.NewStore(conn), []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	profileSvc := profiles.NewService(profiles.NewStore(conn))
	menuSvc := menu.NewService(menu.NewStore(conn))
	attSvc := attendance.NewService(conn, profileSvc, clk)
	billSvc := billing.NewService(conn, profileSvc, attSvc, clk, cfg)
	dashSvc := dashboard.NewService(menuSvc, attSvc, billSvc, clk)

	// /api
	api := r.Group("/api")
	authed := api.Group("/", auth.RequireAuth(authSvc))
	staff := authed.Group("/", auth.RequireStaff())

	auth.RegisterRoutes(api, authed, authSvc)
	profiles.RegisterRoutes(authed, profileSvc)
	menu.RegisterRoutes(api, staff, menuSvc)
	attendance.RegisterRoutes(authed, staff, attSvc)
	billing.RegisterRoutes(authed, staff, billSvc)
	dashboard.RegisterRoutes(authed, dashSvc)

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			httperr.Write(c, httperr.ErrNotFound("no such endpoint"))
			return
		}
		c.Status(http.StatusNotFound)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		var err error
		if cfg.TLSEnabled() {
			log.Printf("[INFO] listening on https://%s", cfg.Addr)
			err = srv.ListenAndServeTLS(cfg.Certificate.Cert, cfg.Certificate.Key)
		} else {
			log.Printf("[WARN] TLS certificate not configured, listening on http://%s", cfg.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
