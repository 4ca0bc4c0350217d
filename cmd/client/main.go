package main

import (
	"NSSaDS/fileshare/internal/domain"
	"NSSaDS/fileshare/internal/infrastructure/network"
	"NSSaDS/fileshare/pkg/config"
	"NSSaDS/fileshare/pkg/logger"
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/fatih/color"
)

var offlineCommands = []string{"HELP", "EXIT", "QUIT", "DISCONNECT"}

// needsConnection reports whether cmd has to reconnect a dropped client
// before it runs.
func needsConnection(cmd string) bool {
	return !slices.Contains(offlineCommands, cmd)
}

var (
	errorText   = color.New(color.FgRed).SprintFunc()
	successText = color.New(color.FgGreen).SprintFunc()
	infoText    = color.New(color.FgCyan).SprintFunc()
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		host       = flag.String("host", "localhost", "Server host")
		port       = flag.String("port", "5000", "Server port")
		downloads  = flag.String("downloads", "./downloads", "Default download directory")
		useTLS     = flag.Bool("tls", false, "Connect over TLS")
		caFile     = flag.String("ca", "", "CA certificate for TLS")
		logLevel   = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	cfg := config.NewConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	if *configPath == "" {
		cfg.Logging.Level = *logLevel
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Client.Host = *host
		case "port":
			cfg.Client.Port = *port
		case "downloads":
			cfg.Client.DownloadDir = *downloads
		case "tls":
			cfg.Client.TLS.Enabled = *useTLS
		case "ca":
			cfg.Client.TLS.CAFile = *caFile
		case "log-level":
			cfg.Logging.Level = *logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logg, logCloser, err := logger.Open(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var client domain.Client = network.NewTCPClient(&cfg.Client, logg)
	input := bufio.NewScanner(os.Stdin)

	if !connect(ctx, client, cfg.Client.Addr(), input) {
		return
	}
	defer client.Disconnect()

	go func() {
		<-sigChan
		fmt.Println("\nDisconnecting...")
		client.Disconnect()
		cancel()
		os.Exit(0)
	}()

	fmt.Printf("Connected to server %s\n", cfg.Client.Addr())
	showHelp()

	for {
		fmt.Print("client> ")
		if !input.Scan() {
			break
		}

		line := strings.TrimSpace(input.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToUpper(parts[0])
		args := parts[1:]

		if needsConnection(cmd) && !client.Connected() {
			if !connect(ctx, client, cfg.Client.Addr(), input) {
				continue
			}
		}

		switch cmd {
		case "HELP":
			showHelp()
		case "LIST":
			handleList(client)
		case "UPLOAD":
			if len(args) != 1 {
				fmt.Println("Usage: UPLOAD <local_path>")
				continue
			}
			handleUpload(client, args[0])
		case "DOWNLOAD":
			if len(args) < 1 || len(args) > 2 {
				fmt.Println("Usage: DOWNLOAD <remote_name> [local_path]")
				continue
			}
			localPath := ""
			if len(args) == 2 {
				localPath = args[1]
			}
			handleDownload(client, args[0], localPath)
		case "EXIT", "QUIT", "DISCONNECT":
			return
		default:
			fmt.Println(errorText("Unknown command: " + cmd))
		}
	}
}

// connect dials until it succeeds or the user declines to retry.
func connect(ctx context.Context, client domain.Client, addr string, input *bufio.Scanner) bool {
	for {
		err := client.Connect(ctx, addr)
		if err == nil {
			return true
		}

		fmt.Println(errorText(fmt.Sprintf("Connection failed: %v", err)))
		fmt.Print("Retry? [y/N] ")
		if !input.Scan() {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(input.Text()))
		if answer != "y" && answer != "yes" {
			return false
		}
	}
}

func showHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  LIST                              - List files on the server")
	fmt.Println("  UPLOAD <local_path>               - Upload a file to the server")
	fmt.Println("  DOWNLOAD <remote_name> [local]    - Download a file from the server")
	fmt.Println("  HELP                              - Show this help")
	fmt.Println("  EXIT/QUIT/DISCONNECT              - Close the connection")
}

func handleList(client domain.Client) {
	names, err := client.List()
	if err != nil {
		reportError(client, "List", err)
		return
	}

	if len(names) == 0 {
		fmt.Println(infoText("No files on server"))
		return
	}
	for _, name := range names {
		fmt.Println("  " + name)
	}
}

func handleUpload(client domain.Client, localPath string) {
	bar := newProgressBar("Uploading")
	progress, err := client.Upload(localPath, network.Throttle(bar.Update))
	bar.Done()
	if err != nil {
		reportError(client, "Upload", err)
		return
	}

	fmt.Println(successText(fmt.Sprintf("Upload completed: %s (%.2f MB, %.2f MB/s)",
		progress.FileName,
		float64(progress.Transferred)/1024/1024,
		progress.Bitrate)))
}

func handleDownload(client domain.Client, remoteName, localPath string) {
	bar := newProgressBar("Downloading")
	progress, err := client.Download(remoteName, localPath, network.Throttle(bar.Update))
	bar.Done()
	if err != nil {
		reportError(client, "Download", err)
		return
	}

	fmt.Println(successText(fmt.Sprintf("Download completed: %s (%.2f MB, %.2f MB/s)",
		progress.FileName,
		float64(progress.Transferred)/1024/1024,
		progress.Bitrate)))
}

func reportError(client domain.Client, op string, err error) {
	var replyErr *domain.ReplyError

	switch {
	case errors.As(err, &replyErr):
		fmt.Println(errorText(fmt.Sprintf("%s refused by server: %s", op, replyErr.Message)))
	case errors.Is(err, domain.ErrNotFound):
		fmt.Println(errorText(fmt.Sprintf("%s: file not found on server", op)))
	default:
		fmt.Println(errorText(fmt.Sprintf("%s failed: %v", op, err)))
	}

	if !client.Connected() {
		fmt.Println(infoText("Connection to server lost; it will be re-established on the next command"))
	}
}
