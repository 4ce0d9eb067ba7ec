package db

import (
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

// SeedTestData resets the database and populates it with demo accounts and relationships.
//
// Behavior:
//  1. Clears every table.
//  2. Creates 6 accounts (user1..user6) sharing DemoPassword; the security
//     question is the favorite-animal one with answer "cat".
//  3. user1<->user2 and user1<->user3 are friends, user4 -> user1 and
//     user1 -> user5 are pending requests.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedTestData(db *gorm.DB) error {
	tables := []string{"friendships", "friend_requests", "favorites", "list_entries", "watchlists", "ratings", "movies", "accounts"}

	// --- Fresh start ---
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences
	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range tables {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ?", tables)
	}

	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	answer, err := bcrypt.GenerateFromPassword([]byte("cat"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash answer: %w", err)
	}

	// --- Seed Accounts ---
	accounts := make([]Account, 0, 6)
	for i := 1; i <= 6; i++ {
		accounts = append(accounts, Account{
			Username:           fmt.Sprintf("user%d", i),
			Email:              fmt.Sprintf("user%d@example.com", i),
			PasswordHash:       string(hash),
			ProfilePicture:     "/default-profile.png",
			SecurityQuestion:   "What is your favorite animal?",
			SecurityAnswerHash: string(answer),
		})
	}
	if err := db.Create(&accounts).Error; err != nil {
		return fmt.Errorf("failed to seed accounts: %w", err)
	}
	log.Printf("Seeded %d accounts.", len(accounts))

	id := func(n int) uint64 { return accounts[n-1].ID }

	// --- Seed Relationships ---
	friendships := []Friendship{
		{AccountID: id(1), FriendID: id(2)}, {AccountID: id(2), FriendID: id(1)},
		{AccountID: id(1), FriendID: id(3)}, {AccountID: id(3), FriendID: id(1)},
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&friendships).Error; err != nil {
		return fmt.Errorf("failed to seed friendships: %w", err)
	}

	requests := []FriendRequest{
		{SenderID: id(4), ReceiverID: id(1)},
		{SenderID: id(1), ReceiverID: id(5)},
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&requests).Error; err != nil {
		return fmt.Errorf("failed to seed friend requests: %w", err)
	}

	names := make([]string, 0, len(accounts))
	for _, a := range accounts {
		names = append(names, a.Username)
	}
	log.Printf("Seeded relationships between %s.", strings.Join(names, ", "))

	return nil
}
