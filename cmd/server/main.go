package main

import (
	"flag"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	defer klog.Flush()
	if err := NewRoot().Execute(); err != nil {
		klog.Errorf("%v", err)
		klog.Flush()
		os.Exit(1)
	}
}

func NewRoot() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "designmaster",
		Short:         "Guided design document generation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// config.GetConfig 读取 CONFIG_PATH
			if configPath != "" {
				return os.Setenv("CONFIG_PATH", configPath)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (overrides CONFIG_PATH)")

	// 初始化 klog，-v 等参数挂到根命令上
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	root.PersistentFlags().AddGoFlagSet(klogFlags)

	root.AddCommand(
		ServeCmd(),
		MCPCmd(),
		SeedCmd(),
		MigrateCmd(),
		ConfigCmd(),
	)
	return root
}
