package bootstrap

import (
	"log"

	"agui-policy-be/internal/config"
	"agui-policy-be/internal/controller"
	"agui-policy-be/internal/pkg/logger"
	"agui-policy-be/internal/service"
	"agui-policy-be/internal/websocket"
	"agui-policy-be/pkg/evaluator"
	"agui-policy-be/pkg/facts"
	pktNats "agui-policy-be/pkg/nats"
	"agui-policy-be/pkg/policy"
)

type Container struct {
	// Controllers
	StateController  controller.IStateController
	PolicyController controller.IPolicyController
	ChatController   controller.IChatController
	IngestController controller.IIngestController

	// Background services (exposed for main.go to run)
	BroadcastService *service.BroadcastService
	WebSocketHub     *websocket.Hub

	// Held for shutdown
	Publisher *service.PublisherService
	Relay     *pktNats.Relay
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Loggers
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	wsLogger := logger.NewIsolatedLogger("logs/stream.log")

	// 2. Stores
	policyStore, err := policy.NewStore(cfg.Storage.PolicyDir)
	if err != nil {
		log.Panicf("Unable to initialize policy store: %v", err)
	}
	factsStore, err := facts.NewStore(cfg.Storage.FactsDir)
	if err != nil {
		log.Panicf("Unable to initialize facts store: %v", err)
	}

	// 3. Evaluators
	registry := evaluator.DefaultRegistry()

	// 4. Stream plumbing
	hub := websocket.NewHub(cfg.Stream.MaxClients, wsLogger)
	publisher := service.NewPublisherService()

	var relay *pktNats.Relay
	if cfg.Stream.NatsURL != "" {
		relay, err = pktNats.NewRelay(cfg.Stream.NatsURL, cfg.Stream.NatsSubject)
		if err != nil {
			sysLogger.Warn("Bootstrap", "NATS relay unavailable, running single-instance", map[string]interface{}{"error": err.Error()})
			relay = nil
		}
	}

	broadcast := service.NewBroadcastService(publisher, hub, relay, sysLogger)

	// 5. Domain services
	exporter, err := service.NewExportService(cfg.Storage.FilesDir, sysLogger)
	if err != nil {
		log.Panicf("Unable to initialize export service: %v", err)
	}

	stateService := service.NewStateService(policyStore, factsStore, registry, exporter, publisher, sysLogger)
	chatService := service.NewChatService(stateService, policyStore, factsStore, sysLogger)

	ingestService, err := service.NewIngestService(stateService, chatService, policyStore, factsStore, cfg.Storage.DocsDir, sysLogger)
	if err != nil {
		log.Panicf("Unable to initialize ingest service: %v", err)
	}

	// 6. Controllers
	return &Container{
		StateController:  controller.NewStateController(stateService, hub, sysLogger),
		PolicyController: controller.NewPolicyController(policyStore),
		ChatController:   controller.NewChatController(chatService),
		IngestController: controller.NewIngestController(ingestService),

		BroadcastService: broadcast,
		WebSocketHub:     hub,
		Publisher:        publisher,
		Relay:            relay,
	}
}
