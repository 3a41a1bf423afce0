package main

import (
	"time"

	"github.com/cskr/pubsub"
	"github.com/dilshat/wa-sender/chat"
	"github.com/dilshat/wa-sender/controller"
	"github.com/dilshat/wa-sender/dao"
	"github.com/dilshat/wa-sender/log"
	"github.com/dilshat/wa-sender/registry"
	"github.com/dilshat/wa-sender/service"
	"github.com/dilshat/wa-sender/util"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func init() {
	err := godotenv.Load()
	if err != nil {
		log.Error.Println(err)
	}
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	//create db client
	dbClient, err := dao.GetClient(util.GetEnv("DB_PATH", "wasender.db"))
	if err != nil {
		log.Fatal(err)
	}

	//create transport to the browser bridge agent
	transport := chat.NewBridgeTransport(
		util.GetEnv("BRIDGE_URL", "http://127.0.0.1:8077"),
		util.GetEnvAsInt("BRIDGE_RPS", 10))

	dispatcher := chat.NewDispatcher(chat.Config{
		NavTimeout:   time.Duration(util.GetEnvAsInt("NAV_TIMEOUT_SEC", 20)) * time.Second,
		PollTick:     time.Duration(util.GetEnvAsInt("POLL_TICK_MS", 300)) * time.Millisecond,
		SettleDelay:  time.Duration(util.GetEnvAsInt("SETTLE_MS", 800)) * time.Millisecond,
		ModalTimeout: time.Duration(util.GetEnvAsInt("MODAL_TIMEOUT_SEC", 10)) * time.Second,
		ConfirmDelay: time.Duration(util.GetEnvAsInt("CONFIRM_MS", 1000)) * time.Millisecond,
	})

	events := pubsub.New(100)

	svc := service.NewService(
		transport,
		dispatcher,
		registry.NewRegistry(),
		dao.NewTemplateDao(dbClient),
		dao.NewSettingsDao(dbClient),
		dao.NewStatsDao(dbClient),
		events,
	)

	//attach http handlers
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.BodyLimit("10M"))

	bindRoutes(e, svc)

	//start http server
	log.Fatal(e.Start(":" + util.GetEnv("HTTP_PORT", "8080")))
}

func bindRoutes(e *echo.Echo, svc service.Service) {

	e.POST("/contacts", controller.GetAddContactFunc(svc))
	e.POST("/contacts/import", controller.GetImportContactsFunc(svc))
	e.GET("/contacts", controller.GetListContactsFunc(svc))
	e.DELETE("/contacts", controller.GetClearContactsFunc(svc))

	e.POST("/run", controller.GetStartRunFunc(svc))
	e.POST("/run/stop", controller.GetStopRunFunc(svc))
	e.GET("/run", controller.GetRunStateFunc(svc))
	e.POST("/test", controller.GetSendTestFunc(svc))

	e.POST("/templates", controller.GetSaveTemplateFunc(svc))
	e.GET("/templates", controller.GetListTemplatesFunc(svc))
	e.DELETE("/templates/:name", controller.GetRemoveTemplateFunc(svc))

	e.GET("/settings", controller.GetSettingsFunc(svc))
	e.PUT("/settings", controller.GetSaveSettingsFunc(svc))

	e.GET("/stats", controller.GetStatsFunc(svc))
	e.DELETE("/stats", controller.GetResetStatsFunc(svc))
}
