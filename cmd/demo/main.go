// Command demo loads two local images and asks the configured provider to
// compare them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"visionchat/internal/app"
	"visionchat/internal/chat"
	"visionchat/internal/config"
	"visionchat/internal/imageload"
)

const prompt = "Describe the content of these images and compare them."

var imagePaths = []string{"image1.jpg", "image2.png"}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := app.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	reply, err := run(ctx, cfg, app.NewDispatcher(cfg, app.NewHTTPClient(cfg, logger), logger))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("AI Response:")
	fmt.Println(reply)
}

func run(ctx context.Context, cfg config.Config, d *chat.Dispatcher) (string, error) {
	loader := imageload.New(imageload.Options{MaxBytes: cfg.MaxImageBytes})

	images, err := loader.LoadAll(ctx, imagePaths)
	if err != nil {
		return "", err
	}

	msg := chat.Message{Role: "user", Content: prompt, Images: images}
	return d.Dispatch(ctx, []chat.Message{msg}, cfg.Provider)
}
