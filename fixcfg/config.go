// Package fixcfg loads the §6 INI-like session configuration file: one
// [DEFAULT] section followed by one or more [SESSION] sections, each
// SESSION inheriting from DEFAULT by field-level union. It is grounded
// on the teacher's ingest/config package: the same
// "read-whole-file-then-parse" loader shape, the same gcfg-backed
// section parsing, and the same env-var/file-secret indirection for
// values that should not live in plaintext on disk.
package fixcfg

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/gravwell/gcfg"
)

const maxConfigSize = 4 * 1024 * 1024

// ConnectionType identifies which half of the FIX handshake a session
// plays.
type ConnectionType string

const (
	Acceptor  ConnectionType = "acceptor"
	Initiator ConnectionType = "initiator"
)

// YN is a §6 Y/N boolean. gcfg assigns it like any other string field;
// Bool() applies the same tolerant parsing the teacher's
// config.ParseBool uses (y/yes/true/t/1 and n/no/false/f/0/empty).
type YN string

func (v YN) Bool() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(string(v))) {
	case "", "n", "no", "false", "f", "0":
		return false, nil
	case "y", "yes", "true", "t", "1":
		return true, nil
	}
	return false, fmt.Errorf("invalid Y/N value %q", v)
}

// GlobalConfig is the [DEFAULT] section; every field a [SESSION]
// section does not set is inherited from here.
type GlobalConfig struct {
	ConnectionType   string
	BeginString      string
	SenderCompID     string
	TargetCompID     string
	SenderSubID      string
	SenderLocationID string
	TargetSubID      string
	TargetLocationID string
	SessionQualifier string
	DefaultApplVerID string

	IsDynamic      YN
	NonStopSession YN
	UseLocalTime   YN
	TimeZone       string
	StartDay       string
	EndDay         string
	StartTime      string
	EndTime        string

	HeartBtInt        int
	ReconnectInterval int
	LogonTimeout      int
	LogoutTimeout     int

	SocketAcceptHost  string
	SocketAcceptPort  int
	SocketConnectHost string
	SocketConnectPort int

	FileStorePath    string
	FileLogPath      string
	DebugFileLogPath string

	PersistMessages YN
	RefreshOnLogon  YN

	ResetOnLogon      YN
	ResetOnLogout     YN
	ResetOnDisconnect YN

	SendRedundantResendRequests YN
	ResendSessionLevelRejects   YN

	TimeStampPrecision string

	EnableLastMsgSeqNumProcessed           YN
	MaxMessagesInResendRequest             int
	SendLogoutBeforeDisconnectFromTimeout  YN
	IgnorePossDupResendRequests            YN
	RequiresOrigSendingTime                YN

	CheckLatency YN
	MaxLatency   int

	UseDataDictionary         YN
	DataDictionary            string
	TransportDataDictionary   string
	AppDataDictionary         string
	ValidateFieldsOutOfOrder  YN
	ValidateFieldsHaveValues  YN
	ValidateUserDefinedFields YN
	ValidateLengthAndChecksum YN
	AllowUnknownMsgFields     YN

	SocketNodelay           YN
	SocketSendBufferSize    int
	SocketReceiveBufferSize int
	SocketSendTimeout       int
	SocketReceiveTimeout    int

	SSLEnable                   YN
	SSLServerName               string
	SSLMinProtocol              string
	SSLMaxProtocol              string
	SSLCertificate              string
	SSLCertificatePassword      string
	SSLCACertificate            string
	SSLAcceptInvalidCerts       YN
	SSLAcceptInvalidHostnames   YN
	SSLRequireClientCertificate YN
}

// SessionConfig is one [SESSION] block, unioned with GlobalConfig.
type SessionConfig struct {
	GlobalConfig
}

// Dynamic reports whether SenderCompID or TargetCompID uses the "*"
// wildcard, matching any counterparty (§3's dynamic acceptor).
func (c *SessionConfig) Dynamic() bool {
	return c.SenderCompID == "*" || c.TargetCompID == "*"
}

// Config is the fully loaded configuration file: one GlobalConfig and
// the ordered list of SESSION blocks that followed it.
type Config struct {
	Default  GlobalConfig
	Sessions []*SessionConfig
}

type defaultWrapper struct {
	Default GlobalConfig
}

type sessionWrapper struct {
	Session SessionConfig
}

// LoadFile reads p (capped at maxConfigSize, mirroring the teacher's
// LoadConfigFile) and parses it.
func LoadFile(p string) (*Config, error) {
	fin, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer fin.Close()
	fi, err := fin.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file %q is too large", p)
	}
	bb := bytes.NewBuffer(nil)
	if _, err := io.Copy(bb, fin); err != nil {
		return nil, err
	}
	return LoadBytes(bb.Bytes())
}

// LoadBytes parses raw config bytes into a Config.
func LoadBytes(b []byte) (*Config, error) {
	blocks, err := splitSections(b)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 || !strings.EqualFold(blocks[0].name, "DEFAULT") {
		return nil, fmt.Errorf("config must begin with a [DEFAULT] section")
	}

	for _, blk := range blocks {
		if err := checkKeys(blk.name, blk.body); err != nil {
			return nil, err
		}
	}

	var dw defaultWrapper
	if err := gcfg.ReadStringInto(&dw, "[default]\n"+blocks[0].body); err != nil {
		return nil, fmt.Errorf("parsing [DEFAULT]: %w", err)
	}
	if err := applyEnvOverrides(&dw.Default); err != nil {
		return nil, err
	}

	cfg := &Config{Default: dw.Default}

	for _, blk := range blocks[1:] {
		if !strings.EqualFold(blk.name, "SESSION") {
			return nil, fmt.Errorf("unexpected section [%s], only DEFAULT and SESSION are recognized", blk.name)
		}
		sw := sessionWrapper{Session: SessionConfig{GlobalConfig: dw.Default}}
		if err := gcfg.ReadStringInto(&sw, "[session]\n"+blk.body); err != nil {
			return nil, fmt.Errorf("parsing [SESSION]: %w", err)
		}
		sess := sw.Session
		cfg.Sessions = append(cfg.Sessions, &sess)
	}
	if len(cfg.Sessions) == 0 {
		return nil, fmt.Errorf("config has no [SESSION] sections")
	}
	return cfg, nil
}

// applyEnvOverrides sets SSLCertificatePassword from the
// FIX_SSL_CERTIFICATE_PASSWORD environment variable or, when that is
// unset, from the file named by FIX_SSL_CERTIFICATE_PASSWORD_FILE. No
// other field is read from the environment.
func applyEnvOverrides(g *GlobalConfig) error {
	if v, err := loadEnv("FIX_SSL_CERTIFICATE_PASSWORD"); err == nil {
		g.SSLCertificatePassword = v
	} else if err != errNoEnvArg {
		return err
	}
	return nil
}

var errNoEnvArg = fmt.Errorf("no env arg")

func loadEnv(name string) (string, error) {
	if v, ok := os.LookupEnv(name); ok {
		return v, nil
	}
	if fp, ok := os.LookupEnv(name + "_FILE"); ok {
		b, err := os.ReadFile(fp)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return "", errNoEnvArg
}

// InstanceID mints a random identifier; each call returns a new value.
func InstanceID() uuid.UUID {
	return uuid.New()
}

type section struct {
	name string
	body string
}

// splitSections breaks the raw file into one block per [SECTION]
// header, preserving the teacher's permissive treatment of blank lines
// and "#"-prefixed comments. gcfg itself has no notion of repeated
// unnamed sections (QuickFix-style configs have many [SESSION]
// blocks); splitting the text ourselves and feeding each block to gcfg
// independently sidesteps that gap without reimplementing INI parsing.
func splitSections(b []byte) ([]section, error) {
	var sections []section
	var cur *section

	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			name := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			sections = append(sections, section{name: name})
			cur = &sections[len(sections)-1]
			continue
		}
		if cur == nil {
			if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
				continue
			}
			return nil, fmt.Errorf("config line %q appears before any section header", line)
		}
		cur.body += line + "\n"
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return sections, nil
}

func checkKeys(section, body string) error {
	valid, ok := validKeys[strings.ToUpper(section)]
	if !ok {
		return fmt.Errorf("unrecognized section [%s]", section)
	}
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			return fmt.Errorf("malformed config line %q", line)
		}
		key := strings.TrimSpace(line[:idx])
		if !valid[strings.ToLower(key)] {
			return fmt.Errorf("unrecognized key %q in [%s]", key, section)
		}
	}
	return sc.Err()
}

var closedKeySet = []string{
	"ConnectionType", "BeginString", "SenderCompID", "TargetCompID", "SenderSubID",
	"SenderLocationID", "TargetSubID", "TargetLocationID", "SessionQualifier",
	"DefaultApplVerID", "IsDynamic", "NonStopSession", "UseLocalTime", "TimeZone",
	"StartDay", "EndDay", "StartTime", "EndTime", "HeartBtInt", "ReconnectInterval",
	"LogonTimeout", "LogoutTimeout", "SocketAcceptHost", "SocketAcceptPort",
	"SocketConnectHost", "SocketConnectPort", "FileStorePath", "FileLogPath",
	"DebugFileLogPath", "PersistMessages", "RefreshOnLogon", "ResetOnLogon",
	"ResetOnLogout", "ResetOnDisconnect", "SendRedundantResendRequests",
	"ResendSessionLevelRejects", "TimeStampPrecision", "EnableLastMsgSeqNumProcessed",
	"MaxMessagesInResendRequest", "SendLogoutBeforeDisconnectFromTimeout",
	"IgnorePossDupResendRequests", "RequiresOrigSendingTime", "CheckLatency",
	"MaxLatency", "UseDataDictionary", "DataDictionary", "TransportDataDictionary",
	"AppDataDictionary", "ValidateFieldsOutOfOrder", "ValidateFieldsHaveValues",
	"ValidateUserDefinedFields", "ValidateLengthAndChecksum", "AllowUnknownMsgFields",
	"SocketNodelay", "SocketSendBufferSize", "SocketReceiveBufferSize",
	"SocketSendTimeout", "SocketReceiveTimeout", "SSLEnable", "SSLServerName",
	"SSLMinProtocol", "SSLMaxProtocol", "SSLCertificate", "SSLCertificatePassword",
	"SSLCACertificate", "SSLAcceptInvalidCerts", "SSLAcceptInvalidHostnames",
	"SSLRequireClientCertificate",
}

var validKeys = buildValidKeys()

func buildValidKeys() map[string]map[string]bool {
	set := make(map[string]bool, len(closedKeySet))
	for _, k := range closedKeySet {
		set[strings.ToLower(k)] = true
	}
	return map[string]map[string]bool{
		"DEFAULT": set,
		"SESSION": set,
	}
}
