// Command fixengine is a minimal acceptor/initiator demo that wires the
// library together end to end: fixcfg loads a session configuration,
// fixlog opens the log sink, dictionary loads the session/app data
// dictionaries, a store.MessageStore backs the sequence cursors, and
// engine+reactor drive the session over a TCP socket. It exists to
// exercise the stack, not as a production orchestration layer.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gravwell/fixengine/dictionary"
	"github.com/gravwell/fixengine/engine"
	"github.com/gravwell/fixengine/fixcfg"
	"github.com/gravwell/fixengine/fixlog"
	"github.com/gravwell/fixengine/reactor"
	"github.com/gravwell/fixengine/session"
	"github.com/gravwell/fixengine/store"
)

var (
	configPath = flag.String("config", "", "path to the session configuration file")
	sessionIdx = flag.Int("session", 0, "index into the config's [SESSION] blocks to run")
	logPath    = flag.String("log", "", "log file path; empty logs to stderr")
	logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, error, critical")
	compressed = flag.Bool("compressed", false, "wrap the wire in snappy framing")
)

func main() {
	flag.Parse()
	if *configPath == "" {
		log.Fatal("fixengine: -config is required")
	}

	cfg, err := fixcfg.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("fixengine: loading config: %v", err)
	}
	if *sessionIdx < 0 || *sessionIdx >= len(cfg.Sessions) {
		log.Fatalf("fixengine: -session %d out of range (config has %d sessions)", *sessionIdx, len(cfg.Sessions))
	}
	sc := cfg.Sessions[*sessionIdx]

	logger, err := openLogger()
	if err != nil {
		log.Fatalf("fixengine: opening logger: %v", err)
	}
	defer logger.Close()
	if lvl, err := fixlog.LevelFromString(*logLevel); err != nil {
		log.Fatalf("fixengine: %v", err)
	} else if err := logger.SetLevel(lvl); err != nil {
		log.Fatalf("fixengine: %v", err)
	}

	sessionDD, err := loadDictionary(sc.DataDictionary, sc.TransportDataDictionary)
	if err != nil {
		log.Fatalf("fixengine: loading session dictionary: %v", err)
	}
	appDD, err := loadDictionary(sc.AppDataDictionary, "")
	if err != nil {
		log.Fatalf("fixengine: loading app dictionary: %v", err)
	}

	st, err := openStore(sc)
	if err != nil {
		log.Fatalf("fixengine: opening store: %v", err)
	}
	defer st.Close()

	sched, err := fixcfg.BuildSchedule(sc)
	if err != nil {
		log.Fatalf("fixengine: building schedule: %v", err)
	}
	settings, err := sc.Settings()
	if err != nil {
		log.Fatalf("fixengine: building settings: %v", err)
	}
	initiator, err := sc.IsInitiator()
	if err != nil {
		log.Fatalf("fixengine: %v", err)
	}

	id := sc.SessionID()
	app := &loggingApplication{log: logger}
	eng := engine.New(id, initiator, st, sessionDD, appDD, sched, app, settings, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conn, err := dial(ctx, sc, initiator)
	if err != nil {
		log.Fatalf("fixengine: %v", err)
	}

	r := reactor.New(eng, conn, *compressed, logger)
	logger.Info("session starting", fixlog.Session(id.BeginString, id.SenderCompID, id.TargetCompID))
	if err := r.Run(ctx); err != nil {
		logger.Error("session ended", fixlog.Field("error", err.Error()))
	}
}

func openLogger() (*fixlog.Logger, error) {
	if *logPath == "" {
		return fixlog.New(os.Stderr), nil
	}
	return fixlog.NewFile(*logPath)
}

func loadDictionary(primary, fallback string) (*dictionary.DataDictionary, error) {
	path := primary
	if path == "" {
		path = fallback
	}
	if path == "" {
		return dictionary.NewDataDictionary(), nil
	}
	return dictionary.LoadFile(path)
}

func openStore(sc *fixcfg.SessionConfig) (store.MessageStore, error) {
	persist, err := sc.PersistMessages.Bool()
	if err != nil {
		return nil, err
	}
	if !persist || sc.FileStorePath == "" {
		return store.NewMemoryStore(), nil
	}
	prefix := filepath.Join(sc.FileStorePath, storeFileName(sc.SessionID()))
	if err := os.MkdirAll(sc.FileStorePath, 0o755); err != nil {
		return nil, err
	}
	return store.NewFileStore(prefix)
}

func dial(ctx context.Context, sc *fixcfg.SessionConfig, initiator bool) (net.Conn, error) {
	if initiator {
		var d net.Dialer
		addr := net.JoinHostPort(sc.SocketConnectHost, itoa(sc.SocketConnectPort))
		return d.DialContext(ctx, "tcp", addr)
	}
	addr := net.JoinHostPort(sc.SocketAcceptHost, itoa(sc.SocketAcceptPort))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	return ln.Accept()
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// storeFileName turns a session.ID into a filesystem-safe store file
// prefix; session.ID.String()'s "/" sub-id separators and "->" arrow
// would otherwise be read as path components.
func storeFileName(id session.ID) string {
	s := id.String()
	repl := strings.NewReplacer("/", "_", ":", "_", ">", "_", "-", "_")
	return repl.Replace(s)
}
