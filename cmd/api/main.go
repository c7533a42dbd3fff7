package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DProject/data/database/mgo/mongoutil"
	"DProject/logger"
	dialogstore "DProject/module/dialog/store"
	eventstore "DProject/module/event/store"
	"DProject/module/feed"
	"DProject/module/httpapi"
	packstore "DProject/module/pack/store"
	"DProject/module/readstate"
	"DProject/module/stats"
	"DProject/module/worker"
	"DProject/service/rabbit"
	"DProject/tools"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// API 进程：重算入口、pack 消息流、读态写入、事件查询。环境变量：
//
//	HTTP_ADDR / GIN_MODE
//	MONGO_URI / MONGO_DATABASE / MONGO_POOL
//	RABBIT_URL（可选；设了则重算的合成事件回发总线）
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mcli, err := mongoutil.NewMongoDB(ctx, &mongoutil.Config{
		Uri:         tools.GetEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		Database:    tools.GetEnv("MONGO_DATABASE", "dproject"),
		MaxPoolSize: tools.GetEnvInt("MONGO_POOL", 100),
	})
	if err != nil {
		logger.Error("mongo connect failed", zap.Error(err))
		os.Exit(1)
	}
	defer func() { _ = mcli.Close(context.Background()) }()
	db := mcli.GetDB()

	events := eventstore.New(db)
	dialogs := dialogstore.New(db)
	packs := packstore.New(db)
	counters := stats.NewStore(db)

	var broker *rabbit.Manager
	if url := tools.GetEnv("RABBIT_URL", ""); url != "" {
		broker, err = rabbit.Dial(rabbit.Config{
			URL:      url,
			Exchange: tools.GetEnv("RABBIT_EXCHANGE", "dproject.events"),
			Queue:    tools.GetEnv("RABBIT_QUEUE", "dproject.events.worker"),
		})
		if err != nil {
			logger.Error("rabbit dial failed", zap.Error(err))
			os.Exit(1)
		}
		defer broker.Close()
	}
	var bus worker.Bus
	if broker != nil {
		bus = broker
	}

	engine := stats.NewEngine(counters, packs, dialogs, worker.NewEmitter(events, bus))
	feedSvc := feed.New(packs, dialogs, feed.NewMongoSource(db))
	readMgr := readstate.NewManager(counters, readstate.NewStore(db))

	gin.SetMode(tools.GetEnv("GIN_MODE", gin.ReleaseMode))
	r := gin.Default()
	httpapi.New(engine, feedSvc, readMgr, events).Register(r)

	addr := tools.GetEnv("HTTP_ADDR", ":8080")
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		// 信号到了就排空在途请求再退
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("http shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("api started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("http server exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}
