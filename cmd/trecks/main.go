package main

import (
	"context"
	"fmt"
	"os"

	"trecks/internal/cli"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client, err := cli.NewClient(args.ServerURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if err := client.Login(ctx, args.Username, args.Password); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	result, err := client.UploadTrack(ctx, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Uploaded %q by %s (track #%d)\n", result.Title, result.Artist, result.ID)
	fmt.Printf("  stored as %s\n", result.Filename)
}
