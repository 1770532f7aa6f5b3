package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	pkg "git.solsynth.dev/hypernet/nanovote/pkg/internal"
	localCache "git.solsynth.dev/hypernet/nanovote/pkg/internal/cache"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/database"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/grpc"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/http"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/realtime"
	"git.solsynth.dev/hypernet/nanovote/pkg/internal/services"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Booting screen
	fmt.Println(color.YellowString(" _   _                __     __    _\n| \\ | | __ _ _ __   __\\ \\   / /__ | |_ ___\n|  \\| |/ _` | '_ \\ / _ \\ \\ / / _ \\| __/ _ \\\n| |\\  | (_| | | | | (_) \\ V / (_) | ||  __/\n|_| \\_|\\__,_|_| |_|\\___/ \\_/ \\___/ \\__\\___|"))
	fmt.Printf("%s v%s\n", color.New(color.FgHiYellow).Add(color.Bold).Sprintf("NanoVote"), pkg.AppVersion)
	fmt.Printf("The anonymous realtime polling service\n")
	color.HiBlack("=====================================================\n")

	// Configure settings
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("An error occurred when loading .env file...")
	}
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")
	viper.SetEnvPrefix("nanovote")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	if len(viper.GetString("security.fingerprint_salt")) == 0 {
		log.Warn().Msg("No fingerprint salt configured, voter digests are only as strong as the fingerprint itself.")
	}

	// Connect to database
	if err := database.NewGorm(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Initialize cache
	if err := localCache.NewStore(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when initializing cache.")
	}

	// Realtime updates
	hub := realtime.NewHub(viper.GetInt("realtime.buffer"))
	services.SetNotifier(hub)

	// Server
	server := http.NewServer(hub)
	go server.Listen()

	grpcServer := grpc.NewGrpc()
	grpcServer.RefreshHealth()
	go func() {
		if err := grpcServer.Listen(); err != nil {
			log.Fatal().Err(err).Msg("An error occurred when starting gRPC server...")
		}
	}()

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	if _, err := quartz.AddFunc(
		lo.Ternary(viper.IsSet("polls.sweep_schedule"), viper.GetString("polls.sweep_schedule"), "@every 1m"),
		services.DoAutoDatabaseCleanup,
	); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when scheduling the expired polls sweep.")
	}
	if _, err := quartz.AddFunc(
		lo.Ternary(viper.IsSet("polls.health_schedule"), viper.GetString("polls.health_schedule"), "@every 30s"),
		grpcServer.RefreshHealth,
	); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when scheduling the health refresh.")
	}
	quartz.Start()

	// Messages
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	<-quartz.Stop().Done()
	grpcServer.Stop()
	if err := server.Shutdown(); err != nil {
		log.Error().Err(err).Msg("An error occurred when shutting down server...")
	}
}
