package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/designmaster/backend/config"
	"github.com/designmaster/backend/internal/handler"
	"github.com/designmaster/backend/internal/mcpserver"
	"github.com/designmaster/backend/internal/pkg/database"
	"github.com/designmaster/backend/internal/router"
	"github.com/designmaster/backend/internal/service"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func ServeCmd() *cobra.Command {
	var port string
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, with the MCP SSE endpoint when enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if port != "" {
				a.cfg.Server.Port = port
			}
			if seed {
				if err := runSeed(cmd.Context(), a); err != nil {
					return err
				}
			}

			var sse *server.SSEServer
			if a.cfg.MCP.Enabled {
				sse = mcpserver.New(a.engine).NewSSEServer(a.cfg.MCP.BasePath)
			}

			r := router.Setup(a.cfg,
				handler.NewAuthHandler(a.users),
				handler.NewTemplateHandler(a.templates),
				handler.NewWorkflowHandler(a.engine),
				sse,
			)

			klog.Infof("Server starting on port %s...", a.cfg.Server.Port)
			return r.Run(":" + a.cfg.Server.Port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Port to listen on (overrides SERVER_PORT)")
	cmd.Flags().BoolVar(&seed, "seed", false, "Load sample data before serving")
	return cmd
}

func MCPCmd() *cobra.Command {
	var transport string
	var addr string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio or SSE",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if transport == "" {
				transport = a.cfg.MCP.Transport
			}
			if addr == "" {
				addr = a.cfg.MCP.Addr
			}

			s := mcpserver.New(a.engine)
			switch transport {
			case "stdio":
				return s.ServeStdio()
			case "sse":
				sse := s.NewSSEServer(a.cfg.MCP.BasePath)
				ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				go func() {
					<-ctx.Done()
					if err := sse.Shutdown(context.Background()); err != nil {
						klog.Warningf("MCP SSE shutdown: %v", err)
					}
				}()
				klog.Infof("MCP SSE server listening on %s", addr)
				return sse.Start(addr)
			default:
				return fmt.Errorf("unsupported MCP transport %q (use stdio or sse)", transport)
			}
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "", "stdio or sse (overrides MCP_TRANSPORT)")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address for sse (overrides MCP_ADDR)")
	return cmd
}

func SeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the sample user and public templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), a)
		},
	}
}

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := database.Migrate(a.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}

func ConfigCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the effective configuration (file, defaults and env) as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.GetConfig().Save(output); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "config.yaml", "File to write")
	return cmd
}

func runSeed(ctx context.Context, a *app) error {
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := service.NewSeedService(a.userRepo, a.users, a.tplRepo).Seed(ctx, service.DefaultSampleUser)
	if err != nil {
		return err
	}
	klog.Infof("Sample data ready: user=%s, new templates=%v", result.User.Username, result.CreatedTemplates)
	return nil
}
