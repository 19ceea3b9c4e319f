// Package logutil writes leveled lines through a standard *log.Logger. In
// JSON mode every line is one object: {"ts","level","msg"[,"component"]}.
package logutil

import (
    "encoding/json"
    "fmt"
    "log"
    "os"
    "strings"
    "sync/atomic"
    "time"
)

var (
    jsonMode  atomic.Bool
    debugMode atomic.Bool
)

func init() {
    if os.Getenv("CLUSTER_LOG_JSON") == "1" || os.Getenv("CLUSTER_LOG_FORMAT") == "json" {
        jsonMode.Store(true)
    }
    if strings.EqualFold(os.Getenv("CLUSTER_LOG_LEVEL"), "debug") {
        debugMode.Store(true)
    }
}

func SetJSON(enabled bool)  { jsonMode.Store(enabled) }
func SetDebug(enabled bool) { debugMode.Store(enabled) }

// New returns a logger for component writing to stderr.
func New(component string) *log.Logger {
    return log.New(os.Stderr, component+": ", log.LstdFlags)
}

func Debugf(l *log.Logger, f string, args ...any) {
    if debugMode.Load() { logf(l, "debug", f, args...) }
}
func Infof(l *log.Logger, f string, args ...any)  { logf(l, "info", f, args...) }
func Warnf(l *log.Logger, f string, args ...any)  { logf(l, "warn", f, args...) }
func Errorf(l *log.Logger, f string, args ...any) { logf(l, "error", f, args...) }

func logf(l *log.Logger, level, f string, args ...any) {
    if l == nil { l = log.Default() }
    msg := fmt.Sprintf(f, args...)
    if jsonMode.Load() {
        evt := map[string]any{
            "ts":    time.Now().UTC().Format(time.RFC3339Nano),
            "level": level,
            "msg":   msg,
        }
        if c := strings.TrimSuffix(strings.TrimSpace(l.Prefix()), ":"); c != "" { evt["component"] = c }
        b, _ := json.Marshal(evt)
        // bypass the logger's own prefix and flags so each line stays valid JSON
        fmt.Fprintln(l.Writer(), string(b))
        return
    }
    plain := log.New(l.Writer(), l.Prefix()+strings.ToUpper(level)+" ", l.Flags()&^log.Lmsgprefix)
    plain.Print(msg)
}
