package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/collabmarket/collab-services/api/internal/config"
	mongodoc "github.com/collabmarket/collab-services/api/internal/infrastructure/mongo"
	"github.com/collabmarket/collab-services/api/internal/logger"
	app "github.com/collabmarket/collab-services/api/internal/marketplace/application"
	"github.com/collabmarket/collab-services/api/internal/marketplace/domain"
	"github.com/collabmarket/collab-services/api/internal/server"
)

type seedOptions struct {
	envName         string
	merchantCount   int
	influencerCount int
	dealCount       int
	applyRate       float64
	dropCollections bool
	rebuildOnly     bool
	randomSeed      int64
}

// パリ周辺の座標。フィードの距離ソートを手元で確認できるようにする。
var places = []struct {
	name string
	lat  float64
	lng  float64
}{
	{"Le Marais, Paris", 48.8590, 2.3620},
	{"Montmartre, Paris", 48.8867, 2.3431},
	{"Bastille, Paris", 48.8532, 2.3691},
	{"La Défense", 48.8920, 2.2360},
	{"Vincennes", 48.8474, 2.4392},
	{"Versailles", 48.8049, 2.1204},
	{"Lyon Presqu'île", 45.7640, 4.8357},
}

var dealTitles = []string{
	"Brunch offert pour deux",
	"Soin visage découverte",
	"Atelier céramique",
	"Menu dégustation",
	"Séance de yoga privée",
	"Coupe et brushing",
	"Box de pâtisseries",
	"Cours de cuisine italienne",
}

var interests = []string{"food", "beauty", "wellness", "lifestyle", "fashion", "travel"}
var contentTypes = []string{"story", "post", "reel", "tiktok"}

var reviewComments = []string{
	"Accueil chaleureux, collaboration fluide.",
	"Contenu livré rapidement et de qualité.",
	"Très professionnel, je recommande.",
	"Quelques retards mais bon résultat final.",
}

func main() {
	opts := parseFlags()

	if err := loadEnvFiles(opts.envName); err != nil {
		log.Printf("WARN: 環境変数ファイルを読み込めませんでした: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}
	zl, err := logger.New("warn", true)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗しました: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("MongoDB 接続に失敗しました: %v", err)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	db := client.Database(cfg.MongoDatabase)
	collections := mongodoc.Collections{
		Deals:         cfg.Collections.Deals,
		Notifications: cfg.Collections.Notifications,
		Chats:         cfg.Collections.Chats,
		UserChats:     cfg.Collections.UserChats,
		SavedDeals:    cfg.Collections.SavedDeals,
		Ratings:       cfg.Collections.Ratings,
	}
	repos := mongodoc.NewRepositories(db, collections)
	services := server.NewServices(server.Repositories{
		Deals:         repos.Deals,
		Notifications: repos.Notifications,
		Chats:         repos.Chats,
		SavedDeals:    repos.SavedDeals,
		Ratings:       repos.Ratings,
	}, nil, zl)

	if opts.rebuildOnly {
		n, err := services.Ratings.Rebuild(ctx)
		if err != nil {
			log.Fatalf("評価集計の再構築に失敗しました: %v", err)
		}
		log.Printf("評価集計を再構築しました: users=%d", n)
		return
	}

	if opts.dropCollections {
		dropCollections(ctx, db, collections)
		log.Printf("既存コレクションを削除しました")
	}
	if err := mongodoc.EnsureIndexes(ctx, db, collections); err != nil {
		log.Fatalf("インデックス作成に失敗しました: %v", err)
	}

	rng := rand.New(rand.NewSource(opts.randomSeed))
	merchants := userIDs("merchant", opts.merchantCount)
	influencers := userIDs("influencer", opts.influencerCount)

	deals := make([]*domain.Deal, 0, opts.dealCount)
	for i := 0; i < opts.dealCount; i++ {
		deal, err := services.Deals.Create(ctx, randomDeal(rng, merchants[i%len(merchants)], i))
		if err != nil {
			log.Fatalf("deal の作成に失敗しました: %v", err)
		}
		deals = append(deals, deal)
	}

	stats := map[domain.CandidatureStatus]int{}
	for _, deal := range deals {
		for _, influencer := range influencers {
			if rng.Float64() >= opts.applyRate {
				continue
			}
			status, err := playCollaboration(ctx, rng, services, deal, influencer)
			if err != nil {
				log.Fatalf("candidature の生成に失敗しました deal=%s influencer=%s: %v", deal.ID, influencer, err)
			}
			stats[status]++
		}
	}

	n, err := services.Ratings.Rebuild(ctx)
	if err != nil {
		log.Fatalf("評価集計の再構築に失敗しました: %v", err)
	}

	log.Printf("Seed 完了: merchants=%d influencers=%d deals=%d candidatures=%v ratings=%d",
		len(merchants), len(influencers), len(deals), stats, n)
	log.Printf("Mongo: %s / %s (env=%s)", cfg.MongoURI, cfg.MongoDatabase, opts.envName)
}

// playCollaboration drives one candidature through the real lifecycle to a random stop.
func playCollaboration(ctx context.Context, rng *rand.Rand, s server.Services, deal *domain.Deal, influencer string) (domain.CandidatureStatus, error) {
	author := domain.Author{ID: influencer, Name: strings.ReplaceAll(influencer, "-", " ")}
	if _, err := s.Candidatures.Apply(ctx, app.ApplyCommand{DealID: deal.ID, Influencer: author}); err != nil {
		return "", err
	}
	asMerchant := app.TransitionCommand{DealID: deal.ID, InfluencerID: influencer, ActorID: deal.MerchantID}

	roll := rng.Intn(10)
	switch {
	case roll < 3:
		return domain.StatusSubmitted, nil
	case roll < 4:
		return domain.StatusRefused, s.Candidatures.Refuse(ctx, asMerchant)
	}
	if err := s.Candidatures.Accept(ctx, asMerchant); err != nil {
		return "", err
	}
	if roll < 6 {
		return domain.StatusAccepted, nil
	}

	proofs := make([]domain.Proof, 1+rng.Intn(3))
	for i := range proofs {
		proofs[i] = domain.Proof{
			Image:  fmt.Sprintf("https://picsum.photos/seed/%s-%s-%d/600/800", deal.ID, influencer, i),
			Likes:  20 + rng.Intn(2000),
			Shares: 1 + rng.Intn(200),
		}
	}
	if err := s.Candidatures.MarkDone(ctx, app.ProofsCommand{
		DealID: deal.ID, InfluencerID: influencer, ActorID: influencer, Proofs: proofs,
	}); err != nil {
		return "", err
	}
	if roll < 7 {
		return domain.StatusApproval, nil
	}
	if err := s.Candidatures.Approve(ctx, asMerchant); err != nil {
		return "", err
	}

	reviews := []app.ReviewCommand{
		{Author: domain.Author{ID: deal.MerchantID, Name: "Commerçant"}},
		{Author: author},
	}
	for _, cmd := range reviews {
		if rng.Intn(4) == 0 {
			continue
		}
		cmd.DealID = deal.ID
		cmd.InfluencerID = influencer
		cmd.Scores = randomScores(rng)
		cmd.Comment = reviewComments[rng.Intn(len(reviewComments))]
		if _, err := s.Candidatures.Review(ctx, cmd); err != nil {
			return "", err
		}
	}
	return domain.StatusCompleted, nil
}

func randomDeal(rng *rand.Rand, merchantID string, i int) app.CreateDealCommand {
	place := places[rng.Intn(len(places))]
	validUntil := time.Now().UTC().AddDate(0, 1+rng.Intn(3), 0)
	cmd := app.CreateDealCommand{
		MerchantID:    merchantID,
		Title:         dealTitles[i%len(dealTitles)],
		Description:   "Offre réservée aux créateurs de contenu locaux.",
		ImageURL:      fmt.Sprintf("https://picsum.photos/seed/deal-%d/800/600", i),
		LocationName:  place.name,
		Interests:     pickUnique(rng, interests, 1+rng.Intn(3)),
		TypeOfContent: pickUnique(rng, contentTypes, 1+rng.Intn(2)),
		ValidUntil:    &validUntil,
		Conditions:    "Mentionner le compte du commerce dans la publication.",
	}
	// 一部の deal は座標なし (住所文字列のみ) にしてフィード末尾の挙動を確認できるようにする
	if rng.Intn(5) == 0 {
		cmd.Location = place.name
		cmd.LocationName = ""
		return cmd
	}
	cmd.LocationCoords = &domain.Coordinates{
		Latitude:  place.lat + (rng.Float64()-0.5)*0.01,
		Longitude: place.lng + (rng.Float64()-0.5)*0.01,
	}
	return cmd
}

func randomScores(rng *rand.Rand) domain.CategoryScores {
	var scores domain.CategoryScores
	for i := range scores {
		scores[i] = 2 + rng.Intn(4)
	}
	return scores
}

func userIDs(prefix string, count int) []string {
	ids := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		ids = append(ids, fmt.Sprintf("%s-%d", prefix, i))
	}
	return ids
}

func pickUnique(rng *rand.Rand, source []string, count int) []string {
	if count >= len(source) {
		return append([]string{}, source...)
	}
	perm := rng.Perm(len(source))
	result := make([]string, 0, count)
	for _, idx := range perm[:count] {
		result = append(result, source[idx])
	}
	return result
}

func parseFlags() seedOptions {
	var opts seedOptions
	flag.StringVar(&opts.envName, "env", "local", "backend/env 内の env ファイル名 (例: local, staging)")
	flag.IntVar(&opts.merchantCount, "merchants", 4, "生成する commerçant 数")
	flag.IntVar(&opts.influencerCount, "influencers", 12, "生成する influenceur 数")
	flag.IntVar(&opts.dealCount, "deals", 20, "生成する deal 数")
	flag.Float64Var(&opts.applyRate, "apply-rate", 0.3, "influenceur が各 deal に応募する確率")
	flag.BoolVar(&opts.dropCollections, "drop", true, "既存コレクションを削除してから投入する")
	flag.BoolVar(&opts.rebuildOnly, "rebuild-ratings", false, "データ投入せず ratings を deals から再集計する")
	defaultSeed := time.Now().UnixNano()
	flag.Int64Var(&opts.randomSeed, "seed", defaultSeed, "乱数シード（再現用）")
	flag.Parse()

	if opts.merchantCount <= 0 || opts.influencerCount <= 0 {
		log.Fatal("merchants / influencers は 1 以上を指定してください")
	}
	if opts.dealCount < 0 {
		opts.dealCount = 0
	}
	if opts.applyRate < 0 {
		opts.applyRate = 0
	}
	return opts
}

func loadEnvFiles(envName string) error {
	base := filepath.Clean(filepath.Join("..", "env"))
	files := []string{
		filepath.Join(base, "shared.env"),
		filepath.Join(base, fmt.Sprintf("%s.env", envName)),
	}
	for _, file := range files {
		if err := loadEnvFile(file); err != nil {
			return err
		}
	}
	return nil
}

func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%s の読み込みに失敗しました: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func dropCollections(ctx context.Context, db *mongo.Database, c mongodoc.Collections) {
	for _, name := range []string{c.Deals, c.Notifications, c.Chats, c.UserChats, c.SavedDeals, c.Ratings} {
		if err := db.Collection(name).Drop(ctx); err != nil {
			// Drop は存在しない場合も err を返すので warning ログにとどめる
			log.Printf("WARN: コレクション %s の削除に失敗: %v", name, err)
		}
	}
}
