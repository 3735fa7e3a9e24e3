package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ironsheep/annotated-diagram-mcp/internal/live"
	"github.com/ironsheep/annotated-diagram-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("annotated-diagram-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("annotated-diagram-mcp - MCP server for annotated diagrams")
			fmt.Println()
			fmt.Println("Usage: annotated-diagram-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  DIAGRAM_MCP_LOG_LEVEL=debug    Enable debug logging")
			fmt.Println("  DIAGRAM_MCP_DB=<path>          SQLite file for saved annotation sets")
			fmt.Println("  DIAGRAM_MCP_SEGMENTER=<name>   Magic wand backend: auto, flood, shapes, placeholder, none")
			fmt.Println("  DIAGRAM_MCP_OCR_LANG=<lang>    Tesseract language for label suggestions (default eng)")
			fmt.Println("  DIAGRAM_MCP_TESSDATA=<dir>     Tesseract language data directory")
			fmt.Println("  DIAGRAM_MCP_LISTEN=<addr>      Serve live editing over WebSocket, e.g. 127.0.0.1:8080")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if cfg.Debug() {
		log.Printf("Annotated Diagram MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	server.Version = Version
	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
	defer srv.Close()

	if cfg.Listen != "" {
		httpSrv := &http.Server{
			Addr:              cfg.Listen,
			Handler:           live.NewHandler(srv.Sessions(), cfg.Debug()),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("Live editing on http://%s/sessions/{id}/ws", cfg.Listen)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Live server error: %v", err)
			}
		}()
		defer httpSrv.Close()
	}

	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
