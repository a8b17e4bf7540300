package main

import (
	"context"
	"flag"
	"hash/fnv"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vinodkrishna221/nexuschat/config"
	"github.com/vinodkrishna221/nexuschat/logger"
	chatstore "github.com/vinodkrishna221/nexuschat/module/chat/store"
	contactstore "github.com/vinodkrishna221/nexuschat/module/contact/store"
	userstore "github.com/vinodkrishna221/nexuschat/module/user/store"
	"github.com/vinodkrishna221/nexuschat/service/bridge"
	"github.com/vinodkrishna221/nexuschat/service/chat"
	"github.com/vinodkrishna221/nexuschat/service/presence"
	"github.com/vinodkrishna221/nexuschat/service/storage"
	"github.com/vinodkrishna221/nexuschat/tools/ids"
)

func main() {
	var confPath string
	flag.StringVar(&confPath, "c", "./config.yml", "config file path(s), comma separated, later override earlier")
	flag.Parse()

	cfg, err := config.Load(confPath)
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	ids.SetNodeID(nodeNumber(cfg.NodeID))
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Required infrastructure: unreachable means the process refuses to
	// accept connections at all.
	ctx := context.Background()
	rdb, err := storage.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Errorf("redis: %v", err)
		os.Exit(1)
	}
	mcli, err := storage.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		logger.Errorf("mongo: %v", err)
		os.Exit(1)
	}
	br, err := bridge.NewNATSBridge(cfg.Nats)
	if err != nil {
		logger.Errorf("nats: %v", err)
		os.Exit(1)
	}

	db := mcli.Database(cfg.Mongo.Database)
	chats := chatstore.NewMongoChatStore(db)
	messages := chatstore.NewMongoMessageStore(db)
	graph := contactstore.NewMongoGraph(db)
	users := userstore.NewMongoUserStore(db)
	for _, ensure := range []func(context.Context) error{
		chats.EnsureIndexes, messages.EnsureIndexes, graph.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			logger.Errorf("ensure indexes: %v", err)
			os.Exit(1)
		}
	}

	pres := presence.NewCache(rdb, users, cfg.Presence.TTL.D())
	srv := chat.NewServer(cfg, pres, graph, chats, messages, br)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/ws", srv.HandleWS)
	engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpSrv := &http.Server{Addr: cfg.HTTP.Addr, Handler: engine}
	go func() {
		logger.Infof("gateway listening on %s node=%s", cfg.HTTP.Addr, cfg.NodeID)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	srv.Close()
	if err := br.Close(); err != nil {
		logger.Warnf("nats close: %v", err)
	}
	if err := rdb.Close(); err != nil {
		logger.Warnf("redis close: %v", err)
	}
	if err := mcli.Disconnect(shutdownCtx); err != nil {
		logger.Warnf("mongo disconnect: %v", err)
	}
}

// nodeNumber folds the configured node name into the snowflake node space.
func nodeNumber(name string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum32() % 1024)
}
