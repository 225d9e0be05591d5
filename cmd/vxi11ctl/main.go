// Command vxi11ctl is a small interactive-free control surface over a
// VXI-11 instrument: open a link, send a command, optionally wait for a
// reply, and exit. It is a flag-parsed CLI for scripting rather than a
// demo program.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oss-instruments/govxi11"
)

var (
	flagDevice  string
	flagTimeout time.Duration
	flagDebug   bool
)

func newSession(addr string) (*vxi11.Session, error) {
	config := vxi11.DefaultConfig()
	config.SubAddress = flagDevice
	config.IOTimeout = flagTimeout
	config.LockTimeout = flagTimeout
	if flagDebug {
		config.Logger = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	}
	return vxi11.Open(addr, config)
}

func main() {
	root := &cobra.Command{
		Use:   "vxi11ctl",
		Short: "Control a VXI-11 instrument from the command line",
	}
	root.PersistentFlags().StringVar(&flagDevice, "device", "inst0", "VXI-11 device sub-address")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", 10*time.Second, "I/O and lock timeout")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	root.AddCommand(
		queryCmd(),
		writeCmd(),
		readCmd(),
		triggerCmd(),
		clearCmd(),
		lockCmd(),
		unlockCmd(),
		statbCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func queryCmd() *cobra.Command {
	var maxLen int
	cmd := &cobra.Command{
		Use:   "query <addr> <command>",
		Short: "Write a command and read back its response",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			resp, err := s.Query(args[1], maxLen)
			if err != nil {
				return err
			}
			fmt.Println(resp)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxLen, "max-len", 1024, "maximum response length")
	return cmd
}

func writeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write <addr> <command>",
		Short: "Write a command without reading a response",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			_, err = s.Write([]byte(args[1]))
			return err
		},
	}
	return cmd
}

func readCmd() *cobra.Command {
	var maxLen int
	cmd := &cobra.Command{
		Use:   "read <addr>",
		Short: "Read up to max-len bytes from the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			buf := make([]byte, maxLen)
			n, err := s.Read(buf)
			if err != nil {
				return err
			}
			fmt.Println(string(buf[:n]))
			return nil
		},
	}
	cmd.Flags().IntVar(&maxLen, "max-len", 1024, "maximum bytes to read")
	return cmd
}

func triggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <addr>",
		Short: "Issue a device trigger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Trigger()
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <addr>",
		Short: "Issue a device clear",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Clear()
		},
	}
}

func lockCmd() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "lock <addr>",
		Short: "Acquire an exclusive lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Lock(wait)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", true, "wait for the lock if currently held")
	return cmd
}

func unlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <addr>",
		Short: "Release a previously acquired lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Unlock()
		},
	}
}

func statbCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "statb <addr>",
		Short: "Read the device's status byte",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()
			stb, err := s.ReadStatusByte()
			if err != nil {
				return err
			}
			fmt.Printf("0x%02X\n", stb)
			return nil
		},
	}
}
