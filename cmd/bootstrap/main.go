package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"ai-sitegen-api/internal/config"
	"ai-sitegen-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 建表
	fmt.Println("Applying database schema...")
	if err := dataLayer.PgClient.InitSchema(ctx); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	fmt.Println("Bootstrap completed successfully.")
}
