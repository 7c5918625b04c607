package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/atinyakov/kidcoin/internal/client/app"
	"github.com/atinyakov/kidcoin/internal/client/realtime"
	"github.com/atinyakov/kidcoin/internal/client/session"
	"github.com/atinyakov/kidcoin/internal/client/storage"
	"github.com/atinyakov/kidcoin/internal/logger"
)

var (
	version   string
	buildDate string
)

// switchPublisher lets the app start offline and adopt the realtime
// connection once it is up.
type switchPublisher struct {
	mu sync.Mutex
	p  app.Publisher
}

func (s *switchPublisher) Publish(ctx context.Context, channel, name string, payload any) error {
	s.mu.Lock()
	p := s.p
	s.mu.Unlock()
	return p.Publish(ctx, channel, name, payload)
}

func (s *switchPublisher) set(p app.Publisher) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

// repl runs the interactive shell loop, accepting commands to manage
// the account and send coins.
func repl(ctx context.Context, a *app.App) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("kidcoin> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, login <user> <pass> [avatar], me, send <to> <amount>,")
			fmt.Println("  bio <text>, email <addr>, phone <num>, avatar <url>,")
			fmt.Println("  theme <dark|light|mint>, sound <on|off>, activity, exit")
		case "login":
			if len(args) < 3 {
				fmt.Println("Usage: login <user> <pass> [avatar]")
				continue
			}
			avatar := ""
			if len(args) > 3 {
				avatar = args[3]
			}
			acc, err := a.CreateOrLogin(ctx, args[1], args[2], avatar)
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("Welcome, %s! Balance: %d KC\n", acc.Username, acc.Balance)
		case "me":
			cur, ok := a.Session().Current()
			if !ok {
				fmt.Println("Not logged in")
				continue
			}
			fmt.Printf("User: %s\nBalance: %d KC\nBio: %s\nEmail: %s\nPhone: %s\nTheme: %s\n",
				cur.Username, cur.Balance, cur.Bio, cur.Contacts.Email, cur.Contacts.Phone, cur.Settings.Theme)
		case "send":
			if len(args) < 3 {
				fmt.Println("Usage: send <to> <amount>")
				continue
			}
			amount, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				fmt.Println("Enter a valid amount.")
				continue
			}
			if err := a.Transfer(ctx, args[1], amount); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("Sent %s KC to %s.\n", args[2], args[1])
		case "bio", "email", "phone", "avatar":
			if len(args) < 2 {
				fmt.Printf("Usage: %s <value>\n", args[0])
				continue
			}
			if err := updateProfileField(ctx, a, args[0], strings.Join(args[1:], " ")); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println("Profile saved.")
		case "theme", "sound":
			if len(args) < 2 {
				fmt.Printf("Usage: %s <value>\n", args[0])
				continue
			}
			if err := updateSetting(ctx, a, args[0], args[1]); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Println("Settings saved.")
		case "activity":
			feed := a.Session().Activity()
			if len(feed) == 0 {
				fmt.Println("No activity yet")
			}
			for _, line := range feed {
				fmt.Println(line)
			}
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func updateProfileField(ctx context.Context, a *app.App, field, value string) error {
	cur, ok := a.Session().Current()
	if !ok {
		return app.ErrNotLoggedIn
	}
	bio, email, phone, avatar := cur.Bio, cur.Contacts.Email, cur.Contacts.Phone, ""
	switch field {
	case "bio":
		bio = value
	case "email":
		email = value
	case "phone":
		phone = value
	case "avatar":
		avatar = value
	}
	return a.UpdateProfile(ctx, bio, email, phone, avatar)
}

func updateSetting(ctx context.Context, a *app.App, key, value string) error {
	cur, ok := a.Session().Current()
	if !ok {
		return app.ErrNotLoggedIn
	}
	st := cur.Settings
	switch key {
	case "theme":
		st.Theme = value
	case "sound":
		st.Sound = value == "on"
	}
	return a.UpdateSettings(ctx, st)
}

// main parses command-line flags and starts the shell, connecting to
// the relay when one is configured.
func main() {
	var (
		relayURL  string
		storePath string
		showVer   bool
	)

	flag.StringVar(&relayURL, "url", "", "relay base URL (empty runs offline)")
	flag.StringVar(&storePath, "store", storage.DefaultPath, "path to the account file")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("KidCoin Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Error"); err != nil {
		fmt.Println("failed to init logger:", err)
		return
	}

	ctx := context.Background()
	store := storage.New(storePath)
	sess := session.New()
	pub := &switchPublisher{p: realtime.Offline{}}
	a := app.New(store, sess, pub, log.Log)

	// Adopt the persisted account, if any.
	if saved, ok := store.Load(); ok {
		sess.SetCurrent(*saved)
		fmt.Printf("Welcome back, %s! Balance: %d KC\n", saved.Username, saved.Balance)
	}

	if relayURL != "" {
		rt, err := realtime.Dial(ctx, relayURL, a, log.Log)
		if err != nil {
			// Local operations keep working without the relay.
			fmt.Println("Could not connect to realtime. Token server unavailable.")
		} else {
			pub.set(rt)
			defer rt.Close()
			fmt.Println("Connected to", relayURL)
		}
	}

	repl(ctx, a)
}
