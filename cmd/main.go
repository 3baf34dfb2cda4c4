package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"coachmotion-backend/handler"
	"coachmotion-backend/internal/auth"
	"coachmotion-backend/internal/integrations/paramstore"
	"coachmotion-backend/internal/integrations/videorooms"
	"coachmotion-backend/internal/repository"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	profilesTable := mustEnv("PROFILES_TABLE")
	sessionsTable := mustEnv("SESSIONS_TABLE")
	messagesTable := mustEnv("MESSAGES_TABLE")
	insightsTable := mustEnv("INSIGHTS_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	roomsBaseURL := os.Getenv("ROOMS_BASE_URL")
	recentMessageLimit := envInt("RECENT_MESSAGE_LIMIT", 50)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	dynamoClient := awsdynamodb.NewFromConfig(cfg)

	profiles, err := repository.NewProfileStore(dynamoClient, profilesTable)
	if err != nil {
		slog.Error("failed to create profile store", "err", err)
		os.Exit(1)
	}
	schedule, err := repository.NewScheduleStore(dynamoClient, sessionsTable)
	if err != nil {
		slog.Error("failed to create schedule store", "err", err)
		os.Exit(1)
	}
	chat, err := repository.NewChatStore(dynamoClient, messagesTable)
	if err != nil {
		slog.Error("failed to create chat store", "err", err)
		os.Exit(1)
	}
	insights, err := repository.NewInsightStore(dynamoClient, insightsTable)
	if err != nil {
		slog.Error("failed to create insight store", "err", err)
		os.Exit(1)
	}

	verifier, err := auth.NewVerifier(ssmClient, paramPrefix+"/session-secret")
	if err != nil {
		slog.Error("failed to create verifier", "err", err)
		os.Exit(1)
	}

	roomOpts := []videorooms.Option{}
	if roomsBaseURL != "" {
		roomOpts = append(roomOpts, videorooms.WithBaseURL(roomsBaseURL))
	}
	rooms, err := videorooms.NewClient(ssmClient, paramPrefix, roomOpts...)
	if err != nil {
		slog.Error("failed to create rooms client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(verifier, profiles, schedule, chat, insights, rooms, recentMessageLimit)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
