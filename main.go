package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/todopic/todopic/internal/cache"
	"github.com/todopic/todopic/internal/config"
	"github.com/todopic/todopic/internal/logging"
	"github.com/todopic/todopic/internal/metrics"
	"github.com/todopic/todopic/internal/pic"
	"github.com/todopic/todopic/internal/server"
	"github.com/todopic/todopic/internal/server/routes"
	"github.com/todopic/todopic/internal/todo"
	"github.com/todopic/todopic/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

const shutdownTimeout = 10 * time.Second

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["pic_backend"] = cfg.Pic.Backend
		fields["todo_storage"] = cfg.Database.StorageMode()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildService(ctx, cfg, logger, prometheus.NewRegistry())
	if err != nil {
		fmt.Fprintf(stdErr, "初始化服务失败: %v\n", err)
		return 1
	}
	defer svc.Close()

	config.Watch(opts.configPath, func(next *config.Config, err error) {
		if err != nil {
			logger.WithFields(logging.BaseFields("config_reload", opts.configPath)).WithError(err).Warn("配置重载失败")
			return
		}
		if err := logging.ApplyLevel(logger, next.Global.LogLevel); err != nil {
			logger.WithFields(logging.BaseFields("config_reload", opts.configPath)).WithError(err).Warn("日志级别无效")
			return
		}
		logger.WithFields(logging.BaseFields("config_reload", opts.configPath)).Info("日志级别已更新")
	})

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["pic_backend"] = cfg.Pic.Backend
	fields["pic_ttl"] = cfg.Pic.CacheTTL.DurationValue().String()
	fields["todo_storage"] = cfg.Database.StorageMode()
	fields["database"] = cfg.Database.Redacted()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := serve(ctx, svc.app, cfg.Global.ListenPort, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("todopic", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 TODOPIC_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("TODOPIC_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		// 没有显式配置时，存在 ./config.toml 才使用，否则只读环境变量。
		if _, err := os.Stat("config.toml"); err == nil {
			path = "config.toml"
		}
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

// service 持有一次运行期间需要关闭的全部资源。
type service struct {
	app   *fiber.App
	store cache.Store
	todos todo.Repository
}

func (s *service) Close() {
	if s.todos != nil {
		_ = s.todos.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

// buildService 遵循“缓存存储 → 回源 → 图片缓存 → todo 仓库 → 指标 → Fiber app”顺序装配。
func buildService(ctx context.Context, cfg *config.Config, logger *logrus.Logger, reg *prometheus.Registry) (*service, error) {
	store, err := cache.Open(cache.OpenOptions{
		Backend:     cfg.Pic.Backend,
		BasePath:    cfg.Global.StoragePath,
		RedisURL:    cfg.Pic.RedisURL,
		LevelDBPath: resolveUnder(cfg.Global.StoragePath, cfg.Pic.LevelDBPath),
	})
	if err != nil {
		return nil, fmt.Errorf("初始化缓存存储失败: %w", err)
	}
	svc := &service{store: store}

	prom, err := metrics.NewProm("todopic", reg)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("注册指标失败: %w", err)
	}

	fetcher := pic.NewHTTPFetcher(server.NewOriginClient(cfg), cfg.Pic.OriginURL, pic.HTTPFetcherOptions{
		UserAgent:      "todopic/" + version.Version,
		MaxBodyBytes:   cfg.Pic.MaxBodyBytes,
		MaxRetries:     cfg.Pic.MaxRetries,
		InitialBackoff: cfg.Pic.InitialBackoff.DurationValue(),
	})
	picCache, err := pic.New(pic.Options{
		Freshness: pic.NewFreshnessStore(store, cfg.Pic.TimestampPath),
		Content:   pic.NewContentStore(store, cfg.Pic.ImagePath),
		Fetcher:   fetcher,
		TTL:       cfg.Pic.CacheTTL.DurationValue(),
		Policy:    pic.ErrorPolicy(cfg.Pic.OnError),
		Coalesce:  cfg.Pic.Coalesce,
		Backend:   cfg.Pic.Backend,
		Logger:    logger,
		Metrics:   prom,
	})
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("初始化图片缓存失败: %w", err)
	}

	todos, err := openTodoRepository(ctx, cfg.Database)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.todos = todos

	app, err := server.NewApp(server.AppOptions{
		Logger:  logger,
		Metrics: prom,
	})
	if err != nil {
		svc.Close()
		return nil, err
	}
	routes.RegisterHelloRoutes(app)
	routes.RegisterPicRoutes(app, picCache, logger)
	routes.RegisterTodoRoutes(app, todos, logger)
	routes.RegisterMetricsRoutes(app, reg)
	svc.app = app

	return svc, nil
}

func openTodoRepository(ctx context.Context, db config.DatabaseConfig) (todo.Repository, error) {
	if !db.Enabled() {
		return todo.NewMemoryRepository(), nil
	}
	repo, err := todo.OpenPostgres(ctx, db.DSN())
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败（%s）: %w", db.Redacted(), err)
	}
	return repo, nil
}

// resolveUnder 把相对路径放到 base 目录下，绝对路径原样返回。
func resolveUnder(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// serve 监听端口直到 ctx 结束，然后在超时内优雅关闭。
func serve(ctx context.Context, app *fiber.App, port int, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.WithFields(logrus.Fields{"action": "shutdown"}).Info("收到退出信号，开始关闭")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}
