package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"github.com/Digital-Mercenaries/zorp/internal/config"
	"github.com/Digital-Mercenaries/zorp/internal/contracts"
	"github.com/Digital-Mercenaries/zorp/internal/events"
	"github.com/Digital-Mercenaries/zorp/internal/irys"
	"github.com/Digital-Mercenaries/zorp/internal/keys"
	"github.com/Digital-Mercenaries/zorp/internal/submission"
)

// ServiceContainer holds every long-lived service the API depends on
type ServiceContainer struct {
	Logger *logrus.Logger

	// Blockchain
	EthClient     *ethclient.Client
	StudyReader   *contracts.StudyReader
	FactoryReader *contracts.FactoryReader
	Writer        *contracts.Writer

	// Storage & keys
	IrysClient  *irys.Client
	KeyAcquirer *keys.Acquirer

	// Events
	Publisher *events.Publisher

	// Submission pipeline
	Orchestrator   *submission.Orchestrator
	SessionManager *submission.Manager
}

// Global service container instance
var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer wires the container from the loaded configuration
func InitializeContainer(logger *logrus.Logger) (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		logger.Info("🚀 Initializing Service Container...")

		container := &ServiceContainer{Logger: logger}

		if err := container.initBlockchain(); err != nil {
			initErr = fmt.Errorf("failed to initialize blockchain services: %w", err)
			return
		}

		if err := container.initStorage(); err != nil {
			initErr = fmt.Errorf("failed to initialize storage services: %w", err)
			return
		}

		// Event publishing is optional, log but don't fail
		if err := container.initEvents(); err != nil {
			logger.Warnf("⚠️ Event services initialization skipped or failed: %v", err)
		}

		container.initSubmission()

		Container = container
		logger.Info("✅ Service Container initialized successfully")
	})

	return Container, initErr
}

// initBlockchain dials the active network and builds the contract readers and
// the transaction writer
func (c *ServiceContainer) initBlockchain() error {
	c.Logger.Info("🔧 Initializing blockchain services...")

	networkCfg, err := config.GetActiveNetwork()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := contracts.Dial(ctx, networkCfg)
	if err != nil {
		return fmt.Errorf("failed to dial network %s: %w", networkCfg.Name, err)
	}
	c.EthClient = client
	c.StudyReader = contracts.NewStudyReader(client)

	if networkCfg.FactoryContract != "" {
		factory := common.HexToAddress(networkCfg.FactoryContract)
		c.FactoryReader = contracts.NewFactoryReader(client, factory)
	} else {
		c.Logger.Warn("⚠️ No factory contract configured; factory reads disabled")
	}

	writer, err := contracts.NewWriter(client, networkCfg, c.Logger)
	if err != nil {
		return err
	}
	c.Writer = writer

	c.Logger.WithFields(logrus.Fields{
		"network":  networkCfg.Name,
		"chain_id": networkCfg.ChainID,
		"from":     writer.From().Hex(),
	}).Info("✅ Blockchain services initialized")
	return nil
}

// initStorage builds the Irys client and the key acquirer on top of it
func (c *ServiceContainer) initStorage() error {
	c.Logger.Info("📦 Initializing storage services...")

	c.IrysClient = irys.NewClient(config.AppConfig.Irys)
	c.KeyAcquirer = keys.NewAcquirer(c.StudyReader, c.IrysClient)

	c.Logger.WithFields(logrus.Fields{
		"gateway": config.AppConfig.Irys.GatewayURL,
		"node":    config.AppConfig.Irys.NodeURL,
		"token":   config.AppConfig.Irys.Token,
	}).Info("✅ Storage services initialized")
	return nil
}

// initEvents connects the NATS publisher when configured
func (c *ServiceContainer) initEvents() error {
	publisher, err := events.NewPublisher(config.AppConfig.NATS, c.Logger)
	if err != nil {
		return err
	}
	c.Publisher = publisher
	return nil
}

// initSubmission assembles the orchestrator and the session manager
func (c *ServiceContainer) initSubmission() {
	networkCfg, _ := config.GetActiveNetwork()

	var factory common.Address
	if networkCfg != nil && networkCfg.FactoryContract != "" {
		factory = common.HexToAddress(networkCfg.FactoryContract)
	}

	c.Orchestrator = submission.NewOrchestrator(
		c.KeyAcquirer,
		c.IrysClient,
		c.Writer,
		factory,
		c.Publisher,
		c.Logger,
	)

	interval := time.Duration(config.AppConfig.Session.PollIntervalSeconds) * time.Second
	c.SessionManager = submission.NewManager(
		c.StudyReader,
		c.Logger,
		interval,
		config.AppConfig.Session.MaxSessions,
	)

	c.Logger.Info("✅ Submission services initialized")
}

// Cleanup stops background services and closes connections
func (c *ServiceContainer) Cleanup() {
	c.Logger.Info("🧹 Cleaning up Service Container...")

	if c.SessionManager != nil {
		c.SessionManager.CloseAll()
	}

	if c.Publisher != nil {
		c.Publisher.Close()
	}

	if c.EthClient != nil {
		c.EthClient.Close()
	}

	c.Logger.Info("✅ Service Container cleaned up")
}
