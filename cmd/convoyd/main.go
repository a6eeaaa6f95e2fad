package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/convoy/internal/config"
	"github.com/l1jgo/convoy/internal/convoy"
	"github.com/l1jgo/convoy/internal/core/event"
	coresys "github.com/l1jgo/convoy/internal/core/system"
	"github.com/l1jgo/convoy/internal/data"
	"github.com/l1jgo/convoy/internal/handler"
	gonet "github.com/l1jgo/convoy/internal/net"
	"github.com/l1jgo/convoy/internal/persist"
	"github.com/l1jgo/convoy/internal/scripting"
	"github.com/l1jgo/convoy/internal/system"
	"github.com/l1jgo/convoy/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              convoyd  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m         車隊護送 · 即時活動伺服器         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s \033[90m(編號: %d)\033[0m\n\n", serverName, serverID)
}

// displayWidth counts CJK characters as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := max(46-displayWidth(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-displayWidth(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printWarn(msg string) {
	fmt.Printf("  \033[33m!\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("CONVOY_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Connect to PostgreSQL and run migrations (optional)
	printSection("資料庫")

	var (
		walletRepo  *persist.WalletRepo
		historyRepo *persist.HistoryRepo
	)
	if cfg.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL 連線成功")

		version, err := persist.RunMigrations(ctx, db.Pool)
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK(fmt.Sprintf("資料庫遷移完成 (版本 %d)", version))

		walletRepo = persist.NewWalletRepo(db)
		historyRepo = persist.NewHistoryRepo(db)
	} else {
		printWarn("資料庫已停用，獎勵與紀錄不會保存")
	}
	fmt.Println()

	// 4. Load event definition and scripts
	printSection("活動資料")

	eventCfg := data.LoadEventConfig(cfg.Event.ConfigPath, log)
	printStat("活動階段", len(eventCfg.Phases))
	printStat("巡邏路徑點", eventCfg.Convoy.WaypointCount)
	printStat("參與人數上限", eventCfg.Event.MaxPlayers)

	var rewards convoy.RewardCalculator
	engine, err := scripting.NewEngine(cfg.Event.ScriptsPath, log)
	if err != nil {
		log.Warn("Lua 腳本載入失敗，獎勵按累積金額發放", zap.Error(err))
	} else {
		defer engine.Close()
		rewards = engine
		printOK("Lua 腳本引擎載入完成")
	}
	fmt.Println()

	// 5. Build world and event controller
	worldState := world.NewState(cfg.World.HalfX, cfg.World.HalfZ, nil)
	bus := event.NewBus()

	seed := cfg.Event.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var feed *gonet.Feed
	ctrlDeps := convoy.Deps{
		Config:        eventCfg,
		Entities:      worldState,
		Players:       worldState.Players(),
		Items:         worldState,
		Zones:         worldState,
		Rewards:       rewards,
		Bus:           bus,
		Rand:          rand.New(rand.NewSource(seed)),
		WalletTimeout: cfg.Database.WriteTimeout,
		Log:           log,
	}
	// assigned only when present so the interfaces stay nil otherwise
	if walletRepo != nil {
		ctrlDeps.Wallet = walletRepo
	}
	if cfg.Network.FeedBind != "" {
		feed = gonet.NewFeed(eventCfg.UI.MainColor, log)
		ctrlDeps.Notifier = feed
		ctrlDeps.Panels = feed
	}
	ctrl := convoy.NewController(ctrlDeps)

	// 6. Start network listeners
	printSection("網路")

	if feed != nil {
		if err := feed.Start(cfg.Network.FeedBind); err != nil {
			return fmt.Errorf("feed: %w", err)
		}
		printOK(fmt.Sprintf("面板推送 ws://%s/feed", cfg.Network.FeedBind))
	}

	netServer, err := gonet.NewServer(cfg.Network.AdminBind, gonet.ServerOptions{
		InSize:       cfg.Network.InQueueSize,
		OutSize:      cfg.Network.OutQueueSize,
		LinesPerSec:  cfg.Network.LinesPerSec,
		PasswordHash: cfg.Admin.PasswordHash,
		LoginTimeout: cfg.Admin.LoginTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("admin console: %w", err)
	}
	go netServer.AcceptLoop()
	if cfg.Admin.PasswordHash == "" {
		printWarn("未設定管理密碼，主控台將拒絕所有登入")
	}
	fmt.Println()

	// 7. Create systems and register with runner
	deps := &handler.Deps{
		Config:     cfg,
		Event:      eventCfg,
		Controller: ctrl,
		World:      worldState,
		Wallet:     walletRepo,
		History:    historyRepo,
		Log:        log,
	}
	cmdReg := handler.NewRegistry(deps)
	handler.RegisterAll(cmdReg)

	sessions := gonet.NewSessionStore()
	runner := coresys.NewRunner()
	runner.Register(system.NewInputSystem(netServer, cmdReg, sessions, cfg.Network.MaxLinesPerTick, log))
	runner.Register(system.NewConvoySystem(ctrl))
	runner.Register(system.NewDispatchSystem(bus))
	runner.Register(system.NewOutputSystem(sessions))
	var persistSys *system.PersistenceSystem
	if historyRepo != nil {
		persistSys = system.NewPersistenceSystem(bus, historyRepo, cfg.Database.WriteTimeout, log)
		runner.Register(persistSys)
	}

	// 8. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Network.TickRate)
	defer ticker.Stop()

	ctrl.Init(time.Now())

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("管理主控台 %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s)", cfg.Network.TickRate))
	if st := ctrl.Status(time.Now()); !st.NextAutoStart.IsZero() {
		printReady(fmt.Sprintf("下次自動開始 %s", st.NextAutoStart.Format(time.TimeOnly)))
	}
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(time.Now())
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			now := time.Now()
			// a running event pays out before the process exits
			if ctrl.State() == convoy.StateActive {
				if err := ctrl.Stop(now); err != nil {
					log.Warn("停止活動失敗", zap.Error(err))
				}
			}
			bus.SwapBuffers()
			bus.DispatchAll()
			if persistSys != nil {
				persistSys.Flush()
			}
			netServer.Shutdown()
			if feed != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := feed.Shutdown(ctx); err != nil {
					log.Warn("面板推送關閉失敗", zap.Error(err))
				}
				cancel()
			}
			log.Info("伺服器已停止")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
