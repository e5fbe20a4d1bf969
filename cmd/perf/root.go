package perf

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/commlink-dev/commlink/cmd/util"
	"github.com/commlink-dev/commlink/comm"
	"github.com/commlink-dev/commlink/comm/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	PerfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Loopback performance benchmark",
		Long:    "Runs a receiver and N senders in-process over the loopback interface and measures end-to-end message throughput.",
		PreRunE: processPerfConfig,
		RunE:    run,
	}

	perfEndpoint    = "socket://127.0.0.1:50051"
	perfNumSenders  = 4
	perfNumMessages = 10000
	perfMsgSize     = 1024
	perfShowMetrics = false
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// add transport flags
	util.SetupCommFlags(PerfCmd)

	// add benchmark flags
	key := "endpoint"
	PerfCmd.Flags().String(key, perfEndpoint, util.WrapString("Loopback address to benchmark over (socket://host:port)"))
	key = "senders"
	PerfCmd.Flags().Int(key, perfNumSenders, util.WrapString("Number of concurrent senders"))
	key = "messages"
	PerfCmd.Flags().Int(key, perfNumMessages, util.WrapString("Number of messages each sender transmits"))
	key = "size"
	PerfCmd.Flags().Int(key, perfMsgSize, util.WrapString("Payload size per message (in bytes)"))
	key = "metrics"
	PerfCmd.Flags().Bool(key, false, util.WrapString("Dump Prometheus metrics after the run"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	perfEndpoint = viper.GetString("endpoint")
	perfNumSenders = viper.GetInt("senders")
	perfNumMessages = viper.GetInt("messages")
	perfMsgSize = viper.GetInt("size")
	perfShowMetrics = viper.GetBool("metrics")

	if perfNumSenders < 1 || perfNumMessages < 1 || perfMsgSize < 1 {
		return fmt.Errorf("senders, messages and size must all be positive")
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {
	config := util.GetCommConfig()
	common.InitLoggers(config.LogLevel)

	fmt.Println("commlink loopback benchmark")
	fmt.Println(config.String())
	fmt.Printf("Senders: %d, messages per sender: %d, payload: %d bytes\n\n",
		perfNumSenders, perfNumMessages, perfMsgSize)

	payload := make([]byte, perfMsgSize)
	for i := range payload {
		payload[i] = byte(i)
	}

	// Senders first: they retry until the receiver is listening.
	var senders sync.WaitGroup
	for i := 0; i < perfNumSenders; i++ {
		senders.Add(1)
		go func() {
			defer senders.Done()
			sender := comm.NewSender(config)
			sender.AddReceiver(perfEndpoint, 0)
			if err := sender.Connect(); err != nil {
				fmt.Printf("sender failed to connect: %v\n", err)
				return
			}
			for n := 0; n < perfNumMessages; n++ {
				if err := sender.Send(common.Message{Data: payload}, 0); err != nil {
					fmt.Printf("send failed: %v\n", err)
					return
				}
			}
			sender.Finalize()
		}()
	}

	receiver := comm.NewReceiver(config)
	if err := receiver.Wait(perfEndpoint, perfNumSenders); err != nil {
		return fmt.Errorf("receiver failed to start: %v", err)
	}

	total := perfNumSenders * perfNumMessages
	start := time.Now()
	for got := 0; got < total; got++ {
		if _, _, err := receiver.Recv(); err != nil {
			return fmt.Errorf("receive failed after %d messages: %v", got, err)
		}
	}
	elapsed := time.Since(start)

	senders.Wait()
	receiver.Finalize()

	mb := float64(total) * float64(perfMsgSize) / (1024 * 1024)
	fmt.Printf("\nReceived %d messages (%.1f MB) in %s\n", total, mb, elapsed)
	fmt.Printf("Throughput: %.0f msg/s, %.1f MB/s\n",
		float64(total)/elapsed.Seconds(), mb/elapsed.Seconds())

	if perfShowMetrics {
		fmt.Println()
		common.WriteMetrics(os.Stdout)
	}
	return nil
}
