package logs

import (
	"log"
	"os"
)

// 定义日志级别常量（数值越大，级别越高）
const (
	LevelTrace   = iota // 0（最低，最详细）
	LevelDebug          // 1
	LevelVerbose        // 2
	LevelInfo           // 3
	LevelWarning        // 4
	LevelError          // 5（最高，最严重）
)

var logLevel = LevelInfo // 全局日志级别

// Logger 可注入的日志接口，各组件持有自己的带前缀实例
type Logger interface {
	Trace(format string, v ...interface{})
	Debug(format string, v ...interface{})
	Verbose(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

type stdLogger struct {
	prefix        string
	traceLogger   *log.Logger
	debugLogger   *log.Logger
	verboseLogger *log.Logger
	infoLogger    *log.Logger
	warnLogger    *log.Logger
	errorLogger   *log.Logger
}

// 全局 Logger 实例
var logger = newStdLogger("")

func newStdLogger(prefix string) *stdLogger {
	flags := log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile
	return &stdLogger{
		prefix:        prefix,
		traceLogger:   log.New(os.Stdout, "[TRACE]   ", flags),
		debugLogger:   log.New(os.Stdout, "[DEBUG]   ", flags),
		verboseLogger: log.New(os.Stdout, "[VERBOSE] ", flags),
		infoLogger:    log.New(os.Stdout, "[INFO]    ", flags),
		warnLogger:    log.New(os.Stdout, "[WARN]    ", flags),
		errorLogger:   log.New(os.Stderr, "[ERROR]   ", flags),
	}
}

// New 创建带前缀的 Logger（例如 "[db] "、"[engine] "）
func New(prefix string) Logger {
	return newStdLogger(prefix)
}

// SetLevel 设置全局日志级别
func SetLevel(level int) {
	if level < LevelTrace || level > LevelError {
		return
	}
	logLevel = level
}

func (l *stdLogger) Trace(format string, v ...interface{}) {
	if logLevel <= LevelTrace {
		l.traceLogger.Printf(l.prefix+format, v...)
	}
}

func (l *stdLogger) Debug(format string, v ...interface{}) {
	if logLevel <= LevelDebug {
		l.debugLogger.Printf(l.prefix+format, v...)
	}
}

func (l *stdLogger) Verbose(format string, v ...interface{}) {
	if logLevel <= LevelVerbose {
		l.verboseLogger.Printf(l.prefix+format, v...)
	}
}

func (l *stdLogger) Info(format string, v ...interface{}) {
	if logLevel <= LevelInfo {
		l.infoLogger.Printf(l.prefix+format, v...)
	}
}

func (l *stdLogger) Warn(format string, v ...interface{}) {
	if logLevel <= LevelWarning {
		l.warnLogger.Printf(l.prefix+format, v...)
	}
}

func (l *stdLogger) Error(format string, v ...interface{}) {
	if logLevel <= LevelError {
		l.errorLogger.Printf(l.prefix+format, v...)
	}
}

// 包级别的日志方法
func Trace(format string, v ...interface{}) { logger.Trace(format, v...) }
func Debug(format string, v ...interface{}) { logger.Debug(format, v...) }
func Verbose(format string, v ...interface{}) {
	logger.Verbose(format, v...)
}
func Info(format string, v ...interface{})  { logger.Info(format, v...) }
func Warn(format string, v ...interface{})  { logger.Warn(format, v...) }
func Error(format string, v ...interface{}) { logger.Error(format, v...) }
