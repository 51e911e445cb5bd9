package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	gonotify "github.com/go-pkgz/notify"
	"github.com/robfig/cron/v3"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/api"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/conditions"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/config"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/metrics"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/notify"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/queue"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/reconcile"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/registry"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/remote"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/schedule"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/scheduler"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/store"
)

type serverOpts struct {
	Listen        string        `long:"listen" env:"CRAWL_LISTEN" default:"127.0.0.1:8080" description:"api listen address"`
	DB            string        `long:"db" env:"CRAWL_DB" default:"var/crawl.db" description:"results database"`
	LegacyDir     string        `long:"legacy-dir" env:"CRAWL_LEGACY_DIR" description:"directory with json state files to import once"`
	UpdateEnable  bool          `short:"u" long:"update" env:"CRAWL_UPDATE" description:"reload schedules on catalog change"`
	CatalogCheck  time.Duration `long:"catalog-check" env:"CRAWL_CATALOG_CHECK" default:"10s" description:"catalog change check interval"`
	Jitter        time.Duration `long:"jitter" env:"CRAWL_JITTER" description:"max random delay of scheduled batches"`
	SyncSpec      string        `long:"sync" env:"CRAWL_SYNC" default:"@every 15m" description:"reconciliation schedule, empty to disable"`
	PoolSize      int           `long:"pool" env:"CRAWL_POOL" default:"8" description:"max local jobs running at once"`
	JobTimeout    time.Duration `long:"job-timeout" env:"CRAWL_JOB_TIMEOUT" description:"max job run time, no limit if 0"`
	StopGrace     time.Duration `long:"stop-grace" env:"CRAWL_STOP_GRACE" default:"5s" description:"time between SIGTERM and SIGKILL"`
	BatchTimeout  time.Duration `long:"batch-timeout" env:"CRAWL_BATCH_TIMEOUT" default:"300s" description:"max wait for a sequential batch member"`
	ClaimTimeout  time.Duration `long:"claim-timeout" env:"CRAWL_CLAIM_TIMEOUT" default:"10m" description:"max wait for a watcher to start a queued job, no limit if 0"`
	MutationLimit float64       `long:"mutation-limit" env:"CRAWL_MUTATION_LIMIT" default:"10" description:"api mutating requests per second per client"`
	Echo          bool          `long:"echo" env:"CRAWL_ECHO" description:"echo job output to stdout"`

	Auth struct {
		User         string `long:"user" env:"USER" default:"crawl" description:"basic auth user"`
		PasswordHash string `long:"password-hash" env:"PASSWORD_HASH" description:"bcrypt hash of basic auth password, no auth if empty"`
	} `group:"auth" namespace:"auth" env-namespace:"CRAWL_AUTH"`

	Remote struct {
		Type        string `long:"type" env:"TYPE" choice:"none" choice:"local" choice:"gcs" default:"none" description:"remote store of result files"`
		Bucket      string `long:"bucket" env:"BUCKET" description:"gcs bucket"`
		Prefix      string `long:"prefix" env:"PREFIX" default:"crawl" description:"object path prefix"`
		LocalDir    string `long:"local-dir" env:"LOCAL_DIR" default:"var/bucket" description:"base directory of local remote store"`
		DeleteLocal bool   `long:"delete-local" env:"DELETE_LOCAL" description:"remove local file after upload"`
	} `group:"remote" namespace:"remote" env-namespace:"CRAWL_REMOTE"`

	Notify struct {
		EnabledError       bool          `long:"enabled-error" env:"ENABLED_ERROR" description:"notify on failed jobs"`
		EnabledCompletion  bool          `long:"enabled-complete" env:"ENABLED_COMPLETE" description:"notify on completed jobs"`
		SMTPHost           string        `long:"smtp-host" env:"SMTP_HOST" description:"SMTP host"`
		SMTPPort           int           `long:"smtp-port" env:"SMTP_PORT" default:"25" description:"SMTP port"`
		SMTPUsername       string        `long:"smtp-username" env:"SMTP_USERNAME" description:"SMTP user name"`
		SMTPPassword       string        `long:"smtp-password" env:"SMTP_PASSWORD" description:"SMTP password"`
		SMTPTLS            bool          `long:"smtp-tls" env:"SMTP_TLS" description:"enable SMTP TLS"`
		SMTPTimeOut        time.Duration `long:"smtp-timeout" env:"SMTP_TIMEOUT" default:"10s" description:"SMTP TCP connection timeout"`
		FromEmail          string        `long:"from" env:"FROM" description:"SMTP from email"`
		ToEmails           []string      `long:"to" env:"TO" env-delim:"," description:"SMTP to email(s)"`
		SlackToken         string        `long:"slack-token" env:"SLACK_TOKEN" description:"slack bot token"`
		SlackChannels      []string      `long:"slack-channel" env:"SLACK_CHANNELS" env-delim:"," description:"slack channel(s)"`
		Webhooks           []string      `long:"webhook" env:"WEBHOOKS" env-delim:"," description:"webhook url(s)"`
		ErrorTemplate      string        `long:"err-template" env:"ERR_TEMPLATE" description:"html template of failure emails"`
		CompletionTemplate string        `long:"complete-template" env:"COMPLETE_TEMPLATE" description:"html template of completion emails"`
		HostName           string        `long:"host" env:"HOSTNAME" description:"host name reported in notifications"`
	} `group:"notify" namespace:"notify" env-namespace:"CRAWL_NOTIFY"`
}

type watchOpts struct {
	PollInterval time.Duration `long:"poll" env:"CRAWL_WATCH_POLL" default:"2s" description:"queue poll interval"`
	Grace        time.Duration `long:"grace" env:"CRAWL_WATCH_GRACE" default:"10s" description:"time between SIGTERM and SIGKILL of a canceled job"`
	MaxAge       time.Duration `long:"max-age" env:"CRAWL_WATCH_MAX_AGE" default:"24h" description:"drop older queued jobs"`
	Echo         bool          `long:"echo" env:"CRAWL_WATCH_ECHO" description:"echo job output to stdout"`
}

var opts struct {
	Catalog     string `short:"c" long:"catalog" env:"CRAWL_CATALOG" default:"crawlers.yml" description:"crawler catalog file"`
	QueueDir    string `long:"queue-dir" env:"CRAWL_QUEUE_DIR" default:"var/queue" description:"job queue directory"`
	QueueLogDir string `long:"queue-logs" env:"CRAWL_QUEUE_LOGS" description:"queued job logs directory, {queue-dir}/logs if empty"`
	Dbg         bool   `long:"dbg" env:"CRAWL_DEBUG" description:"debug mode"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable logging to file"`
		Filename        string `long:"filename" env:"FILENAME" default:"var/crawl.log" description:"log file name"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in megabytes"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"7" description:"max number of rotated files"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"0" description:"max age of rotated files in days"`
		EnabledCompress bool   `long:"compress" env:"COMPRESS" description:"compress rotated files"`
	} `group:"log" namespace:"log" env-namespace:"CRAWL_LOG"`

	Server serverOpts `command:"server" description:"run scheduler, reconciliation and http api"`
	Watch  watchOpts  `command:"watch" description:"run jobs queued by the server"`
}

var revision = "unknown"

func main() {
	fmt.Printf("crawl-orchestrator %s\n", revision)

	p := flags.NewParser(&opts, flags.Default)
	if _, err := p.Parse(); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel) // handle SIGQUIT, SIGINT and SIGTERM

	var err error
	switch p.Active.Name {
	case "server":
		err = runServer(ctx)
	case "watch":
		err = runWatch(ctx)
	}
	cancel()
	if err != nil {
		log.Printf("[ERROR] %s failed, %v", p.Active.Name, err)
		os.Exit(1)
	}
}

// runServer wires the scheduler, reconciliation, cron planner and http api, blocks till ctx canceled
func runServer(ctx context.Context) error {
	so := opts.Server
	cat := config.New(opts.Catalog, so.CatalogCheck)
	if _, err := cat.Load(); err != nil {
		log.Printf("[WARN] catalog not loaded yet, %v", err)
	}

	st, err := store.NewSQLiteStore(so.DB)
	if err != nil {
		return fmt.Errorf("can't open results store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("[WARN] can't close results store, %v", err)
		}
	}()
	if so.LegacyDir != "" {
		migrated, err := st.MigrateLegacy(so.LegacyDir)
		if err != nil {
			log.Printf("[WARN] legacy state migration failed, %v", err)
		}
		if migrated {
			log.Printf("[INFO] legacy state imported from %s", so.LegacyDir)
		}
	}

	rmt, err := makeRemote(ctx)
	if err != nil {
		return err
	}
	if c, ok := rmt.(io.Closer); ok {
		defer c.Close()
	}

	q, err := queue.New(opts.QueueDir, opts.QueueLogDir)
	if err != nil {
		return err
	}

	reg := registry.New(registry.DefaultLogLines)
	mtr := metrics.New(reg)
	engine := reconcile.New(st, cat, rmt)
	engine.Activities = reg

	events := []scheduler.JobEventHandler{mtr}
	if ns := makeNotifier(); ns != nil {
		events = append(events, ns)
		defer ns.Wait()
	}

	var uploader scheduler.Uploader
	if rmt != nil {
		uploader = &metrics.Uploader{Uploader: remote.NewUploader(rmt, st, so.Remote.DeleteLocal), Metrics: mtr}
	}

	var stdout io.Writer
	if so.Echo {
		stdout = os.Stdout
	}
	transport := queue.NewFileTransport(q)
	transport.ClaimTimeout = so.ClaimTimeout
	sched := scheduler.New(scheduler.Config{
		Registry:     reg,
		Catalog:      cat,
		Results:      engine,
		Transport:    transport,
		Uploader:     uploader,
		Gate:         conditions.NewChecker(0),
		Events:       events,
		PoolSize:     so.PoolSize,
		StopGrace:    so.StopGrace,
		BatchTimeout: so.BatchTimeout,
		JobTimeout:   so.JobTimeout,
		Stdout:       stdout,
	})

	planner := &schedule.Planner{
		Cron:           cron.New(),
		Catalog:        cat,
		Jobs:           sched,
		UpdatesEnabled: so.UpdateEnable,
		Jitter:         so.Jitter,
		Syncer:         engine,
		SyncSpec:       so.SyncSpec,
		OnSync:         mtr.ObserveSync,
	}

	srv, err := api.New(api.Config{
		Jobs:          sched,
		Results:       engine,
		Catalog:       cat,
		Version:       revision,
		AuthUser:      so.Auth.User,
		PasswordHash:  so.Auth.PasswordHash,
		MutationLimit: so.MutationLimit,
		Metrics:       mtr.Handler(),
		Middleware:    mtr.Middleware,
		OnSync:        mtr.ObserveSync,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(3)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := planner.Do(ctx); err != nil {
			errs <- fmt.Errorf("planner failed: %w", err)
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		if err := srv.Run(ctx, so.Listen); err != nil {
			errs <- err
			cancel()
		}
	}()
	wg.Wait()
	close(errs)
	return <-errs
}

// runWatch runs queued jobs till ctx canceled
func runWatch(ctx context.Context) error {
	wo := opts.Watch
	q, err := queue.New(opts.QueueDir, opts.QueueLogDir)
	if err != nil {
		return err
	}
	cat := config.New(opts.Catalog, 0)
	w := &queue.Watcher{Queue: q, Limit: cat.MaxConcurrentJobs, PollInterval: wo.PollInterval,
		Grace: wo.Grace, MaxAge: wo.MaxAge}
	if wo.Echo {
		w.Stdout = os.Stdout
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("queue watcher failed: %w", err)
	}
	return nil
}

// makeRemote returns remote store of result files, nil if disabled
func makeRemote(ctx context.Context) (remote.Store, error) {
	ro := opts.Server.Remote
	switch ro.Type {
	case "gcs":
		if ro.Bucket == "" {
			return nil, errors.New("gcs bucket is required")
		}
		g, err := remote.NewGCS(ctx, ro.Bucket, ro.Prefix)
		if err != nil {
			return nil, fmt.Errorf("can't make gcs store: %w", err)
		}
		return g, nil
	case "local":
		l, err := remote.NewLocal(ro.LocalDir, ro.Prefix)
		if err != nil {
			return nil, fmt.Errorf("can't make local store: %w", err)
		}
		return l, nil
	}
	log.Printf("[INFO] remote store disabled, results kept locally")
	return nil, nil
}

// makeNotifier returns nil if notifications are disabled or no destinations set
func makeNotifier() *notify.Service {
	no := &opts.Server.Notify
	if !no.EnabledError && !no.EnabledCompletion {
		return nil
	}
	if no.FromEmail == "" {
		no.FromEmail = "crawl@" + makeHostName()
	}
	return notify.NewService(
		notify.Params{
			OnError:            no.EnabledError,
			OnCompletion:       no.EnabledCompletion,
			ErrorTemplate:      no.ErrorTemplate,
			CompletionTemplate: no.CompletionTemplate,
			Hostname:           makeHostName(),
		},
		notify.SendersParams{
			SMTP: gonotify.SMTPParams{
				Host:        no.SMTPHost,
				Port:        no.SMTPPort,
				TLS:         no.SMTPTLS,
				Username:    no.SMTPUsername,
				Password:    no.SMTPPassword,
				TimeOut:     no.SMTPTimeOut,
				ContentType: "text/html",
			},
			FromEmail:     no.FromEmail,
			ToEmails:      no.ToEmails,
			SlackToken:    no.SlackToken,
			SlackChannels: no.SlackChannels,
			Webhooks:      no.Webhooks,
		},
	)
}

func makeHostName() string {
	if opts.Server.Notify.HostName != "" {
		return opts.Server.Notify.HostName
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

// setupLogs configures lgr, returns the writer logs go to
func setupLogs() io.Writer {
	out := io.Writer(os.Stdout)
	errOut := io.Writer(os.Stderr)
	if opts.Log.Enabled {
		lj := &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
		}
		out, errOut = lj, lj
	}

	logOpts := []log.Option{log.Msec, log.LevelBraces, log.Out(out), log.Err(errOut)}
	if opts.Dbg {
		logOpts = append(logOpts, log.Debug, log.CallerFunc, log.CallerPkg, log.CallerFile)
	}
	log.Setup(logOpts...)
	return out
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			log.Printf("[INFO] %v received, shutting down", sig)
			cancel()
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
