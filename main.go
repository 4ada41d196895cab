package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"timevault/config"
	"timevault/crt"
	"timevault/db"
	"timevault/handlers"
	"timevault/logs"
	"timevault/middleware"
	"timevault/utils"
	"timevault/vault"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

// 表示一个节点实例
type NodeInstance struct {
	Address        string
	Port           string
	DataPath       string
	Server         *http.Server  // TCP TLS server
	HTTP3Server    *http3.Server // QUIC HTTP/3 server
	DBManager      *db.Manager
	Engine         *vault.Engine
	HandlerManager *handlers.HandlerManager
	Logger         logs.Logger
}

func main() {
	var (
		port       = flag.String("port", "6001", "listen port")
		dataPath   = flag.String("data", "./data", "badger data directory")
		keyHex     = flag.String("key", "", "node private key (32-byte hex); empty generates one")
		configPath = flag.String("config", "", "optional JSON config file")
		logLevel   = flag.Int("log-level", logs.LevelInfo, "log level (0=trace .. 5=error)")
	)
	flag.Parse()

	logs.SetLevel(*logLevel)

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			logs.Error("load config: %v", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	node := &NodeInstance{
		Port:     *port,
		DataPath: *dataPath,
		Logger:   logs.New("[node] "),
	}

	if err := initializeNode(node, cfg, *keyHex); err != nil {
		logs.Error("init node: %v", err)
		os.Exit(1)
	}

	errorChan := make(chan error, 1)
	go func() {
		if err := startHTTPServer(node, cfg); err != nil {
			errorChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		node.Logger.Info("received signal %v, shutting down", sig)
	case err := <-errorChan:
		node.Logger.Error("server error: %v", err)
	}

	shutdownNode(node)
}

// 初始化单个节点
func initializeNode(node *NodeInstance, cfg *config.Config, keyHex string) error {
	// 1. 初始化密钥管理器
	keyMgr := utils.GetKeyManager()
	if err := keyMgr.InitKey(keyHex); err != nil {
		return fmt.Errorf("failed to init key: %w", err)
	}
	node.Address = keyMgr.GetAddress()

	// 2. 初始化数据库
	dbManager, err := db.NewManagerWithConfig(node.DataPath, node.Logger, cfg)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	node.DBManager = dbManager
	dbManager.InitWriteQueue(cfg.Database.MaxBatchSize, cfg.Database.FlushInterval)

	// 3. 装配引擎
	custody := cfg.Vault.CustodyAddress
	if custody == "" {
		custody = node.Address
	}
	var auth vault.AuthChecker
	if cfg.Auth.AuthEnabled {
		auth = utils.SignatureAuth{}
	}
	engine, err := vault.NewEngine(vault.EngineOptions{
		DB:           dbManager,
		Auth:         auth,
		Custody:      custody,
		NodeAddr:     node.Address,
		RestrictInit: cfg.Vault.RestrictInit,
		Logger:       logs.New("[engine] "),
	})
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}
	node.Engine = engine

	// 4. 创世分配（只在首次启动生效）
	if len(cfg.Vault.Genesis) > 0 {
		allocs := make([]vault.GenesisAlloc, 0, len(cfg.Vault.Genesis))
		for _, a := range cfg.Vault.Genesis {
			base, err := vault.ToBaseUnits(a.Amount, cfg.Vault.TokenDecimals)
			if err != nil {
				return fmt.Errorf("genesis alloc %s: %w", a.Address, err)
			}
			allocs = append(allocs, vault.GenesisAlloc{Address: a.Address, Amount: base})
		}
		if err := engine.ApplyGenesis(cfg.Vault.TokenSymbol, allocs); err != nil {
			return fmt.Errorf("apply genesis: %w", err)
		}
	}

	// 5. 创建Handler管理器
	node.HandlerManager = handlers.NewHandlerManager(
		engine,
		dbManager,
		cfg,
		node.Port,
		node.Address,
		logs.New("[api] "),
	)

	return nil
}

func startHTTPServer(node *NodeInstance, cfg *config.Config) error {
	// 创建HTTP路由
	mux := http.NewServeMux()
	node.HandlerManager.RegisterRoutes(mux)

	// 应用中间件
	handler := middleware.RateLimit(mux)
	middleware.StartIPCleanup()

	// 生成自签名证书
	certFile := fmt.Sprintf("server_%s.crt", node.Port)
	keyFile := fmt.Sprintf("server_%s.key", node.Port)
	if err := crt.GenerateSelfSignedCert(certFile, keyFile, node.Address, cfg.Server.CertValidityDays); err != nil {
		return fmt.Errorf("failed to generate certificate: %w", err)
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}

	// 创建TLS配置，ALPN 同时支持 h3 和 http/1.1（TCP 回退）
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
		MaxVersion:   tls.VersionTLS13,
		NextProtos:   []string{"h3", "h3-29", "http/1.1"},
	}

	// 创建QUIC配置
	quicConfig := &quic.Config{
		KeepAlivePeriod: cfg.Server.QUICKeepAlivePeriod,
		MaxIdleTimeout:  cfg.Server.QUICMaxIdleTimeout,
		Allow0RTT:       cfg.Server.QUICAllow0RTT,
	}

	// 创建HTTP/3服务器
	server := &http3.Server{
		Addr:       ":" + node.Port,
		Handler:    handler,
		TLSConfig:  tlsConfig,
		QUICConfig: quicConfig,
	}
	node.HTTP3Server = server

	// 创建QUIC监听器
	listener, err := quic.ListenAddrEarly(":"+node.Port, tlsConfig, quicConfig)
	if err != nil {
		return fmt.Errorf("failed to create QUIC listener: %w", err)
	}

	logs.Info("node %s: starting HTTP/3 server on port %s", node.Address, node.Port)

	// 启动一个后台 TCP TLS 服务器，供不支持 QUIC 的客户端使用
	tcpServer := &http.Server{
		Addr:         ":" + node.Port,
		Handler:      handler,
		TLSConfig:    tlsConfig,
		ReadTimeout:  cfg.Server.HTTPTimeout,
		WriteTimeout: cfg.Server.HTTPTimeout,
	}
	node.Server = tcpServer
	go func() {
		if err := tcpServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			logs.Error("TCP TLS server error: %v", err)
		}
	}()

	// 启动服务器（这是阻塞调用）
	if err := server.ServeListener(listener); err != nil {
		if isServerClosedErr(err) {
			return nil
		}
		return err
	}
	return nil
}

func shutdownNode(node *NodeInstance) {
	node.Logger.Info("stopping node...")

	// 1. 关闭 HTTP 服务器
	if node.HTTP3Server != nil {
		if err := node.HTTP3Server.Close(); err != nil && !isServerClosedErr(err) {
			node.Logger.Warn("failed to close HTTP/3 server: %v", err)
		}
	}
	if node.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := node.Server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			node.Logger.Warn("failed to shutdown TCP server: %v", err)
		}
		cancel()
	}

	// 2. 最后关闭数据库
	if node.DBManager != nil {
		node.DBManager.Close()
	}

	node.Logger.Info("node stopped.")
}

func isServerClosedErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, http.ErrServerClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "server closed") ||
		strings.Contains(msg, "closed network connection") ||
		strings.Contains(msg, "use of closed network connection")
}
