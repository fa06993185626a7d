package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"kindred/backend/internal/config"
	"kindred/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("failed to connect Redis: %v", err)
	}

	storageSvc := storage.NewStorageService(db, rdb)

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "interests":
		runInterests(storageSvc, os.Args[2:])
	case "ban":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin ban <user_id> [duration_in_hours]")
			os.Exit(1)
		}
		userID := os.Args[2]
		var duration time.Duration
		if len(os.Args) > 3 {
			hours, err := strconv.Atoi(os.Args[3])
			if err != nil {
				fmt.Println("Invalid duration. Please provide an integer.")
				os.Exit(1)
			}
			duration = time.Duration(hours) * time.Hour
		}
		if err := banUser(storageSvc, userID, duration); err != nil {
			log.Fatalf("Error banning user: %v", err)
		}
		fmt.Printf("User %s has been banned.\n", userID)
	case "unban":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin unban <user_id>")
			os.Exit(1)
		}
		userID := os.Args[2]
		if err := unbanUser(storageSvc, userID); err != nil {
			log.Fatalf("Error unbanning user: %v", err)
		}
		fmt.Printf("User %s has been unbanned.\n", userID)
	case "queue":
		waiting, err := storageSvc.GetSearchingUsers()
		if err != nil {
			log.Fatalf("Error reading search queue: %v", err)
		}
		fmt.Printf("%d users waiting:\n", len(waiting))
		for _, userID := range waiting {
			fmt.Println("  " + userID)
		}
	default:
		usage()
	}
}

func usage() {
	fmt.Println(`Usage: admin <command> [args]

Commands:
  interests list
  interests add <name>
  interests remove <name>
  ban <user_id> [duration_in_hours]
  unban <user_id>
  queue`)
	os.Exit(1)
}

func runInterests(s storage.Storage, args []string) {
	if len(args) < 1 {
		usage()
	}
	switch args[0] {
	case "list":
		interests, err := s.ListInterests()
		if err != nil {
			log.Fatalf("Error listing interests: %v", err)
		}
		for _, interest := range interests {
			fmt.Println(interest.Name)
		}
	case "add":
		if len(args) != 2 {
			usage()
		}
		if err := s.CreateInterest(args[1]); err != nil {
			log.Fatalf("Error adding interest: %v", err)
		}
		fmt.Printf("Interest %q added.\n", args[1])
	case "remove":
		if len(args) != 2 {
			usage()
		}
		if err := s.DeleteInterest(args[1]); err != nil {
			log.Fatalf("Error removing interest: %v", err)
		}
		fmt.Printf("Interest %q removed.\n", args[1])
	default:
		usage()
	}
}

func banUser(s storage.Storage, userID string, duration time.Duration) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	user.IsBlocked = true
	if duration > 0 {
		user.BlockEndTime = time.Now().Add(duration).Unix()
	}
	if err := s.BanUser(userID, duration); err != nil {
		return err
	}
	return s.UpdateUser(user)
}

func unbanUser(s storage.Storage, userID string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	user.IsBlocked = false
	user.BlockEndTime = 0
	if err := s.UnbanUser(userID); err != nil {
		return err
	}
	return s.UpdateUser(user)
}
