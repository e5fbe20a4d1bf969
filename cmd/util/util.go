package util

import (
	"strings"

	"github.com/commlink-dev/commlink/comm/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupCommFlags adds the transport configuration flags to a command
func SetupCommFlags(cmd *cobra.Command) {
	key := "threads"
	cmd.PersistentFlags().Int(key, 0, WrapString("Maximum worker count per side (0 = one per peer)"))

	key = "queue-capacity"
	cmd.PersistentFlags().Int(key, 0, WrapString("Capacity of each per-peer message queue (0 = unbounded)"))

	key = "connect-retries"
	cmd.PersistentFlags().Int(key, 1024, WrapString("How many times to retry connecting to a receiver"))

	key = "connect-retry-interval"
	cmd.PersistentFlags().Duration(key, 0, WrapString("Backoff between connection attempts (e.g. 5s, 100ms)"))

	key = "write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 = OS default)"))

	key = "read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 = OS default)"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for every connection"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for every connection (in seconds)"))

	key = "tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time for every connection (in seconds, -1 = OS default)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("Log level (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("commlink")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetCommConfig reads the transport configuration from viper
func GetCommConfig() common.Config {
	conf := common.Config{
		MaxThreadCount:       viper.GetInt("threads"),
		QueueCapacity:        viper.GetInt("queue-capacity"),
		ConnectRetryCount:    viper.GetInt("connect-retries"),
		ConnectRetryInterval: viper.GetDuration("connect-retry-interval"),
		LogLevel:             viper.GetString("log-level"),
		Socket: common.SocketConf{
			WriteBufferSize: viper.GetInt("write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
		},
		TCP: common.TCPConf{
			TCPNoDelay:      viper.GetBool("tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("tcp-linger"),
		},
	}
	return conf.WithDefaults()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
