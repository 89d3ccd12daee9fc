// Command myflix is a CLI client for the myFlix API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username"`
}

var errNoSession = errors.New("no valid token (login required)")

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "myflix")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "myflix")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tf tokenFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func loadToken() (tokenFile, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tokenFile{}, errNoSession
		}
		return tokenFile{}, err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return tokenFile{}, err
	}
	if tf.AccessToken == "" || tf.Username == "" || time.Now().After(tf.ExpiresAt) {
		return tokenFile{}, errNoSession
	}
	return tf, nil
}

func clearToken() error {
	err := os.Remove(tokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// tokenExpiry reads exp from the token without verifying it; the server does that.
func tokenExpiry(raw string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return time.Now().Add(15 * time.Minute)
}

// ---- utils ----

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage(w io.Writer) {
	fmt.Fprint(w, `myflix CLI
Usage:
  myflix [-addr URL] <cmd> [args]

Commands:
  version
  register   -u <username> -e <email> [-p <password>] [-b YYYY-MM-DD]
  login      -u <username> [-p <password>]         (saves token; prompts if -p is omitted)
  logout
  me
  update     [-p <password>] [-e <email>] [-b YYYY-MM-DD]
  fav-add    -id <movieID>
  fav-rm     -id <movieID>
  delete                                           (deletes your account)
  movies
  movie      -t <title>
  genre      -n <name>
  director   -n <name>
`)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

var errUsage = errors.New("usage")

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		usage(os.Stderr)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run dispatches one subcommand.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("myflix", flag.ContinueOnError)
	global.SetOutput(stderr)
	addr := global.String("addr", envOr("MYFLIX_URL", "http://localhost:8080"), "server base URL")
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if global.NArg() < 1 {
		return errUsage
	}
	cmd, rest := global.Arg(0), global.Args()[1:]
	cli := newClient(*addr, "")

	sub := flag.NewFlagSet(cmd, flag.ContinueOnError)
	sub.SetOutput(stderr)

	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "myflix %s (%s)\n", version, buildDate)
		return nil

	case "register":
		u := sub.String("u", "", "username")
		p := sub.String("p", "", "password")
		e := sub.String("e", "", "email")
		b := sub.String("b", "", "birthday YYYY-MM-DD")
		if err := sub.Parse(rest); err != nil {
			return errUsage
		}
		if *u == "" || *e == "" {
			return errors.New("need -u and -e")
		}
		if *p == "" {
			pw, err := promptPassword(stderr, "Password: ")
			if err != nil {
				return err
			}
			*p = pw
		}
		acc, err := cli.register(ctx, registerRequest{Username: *u, Password: *p, Email: *e, Birthday: *b})
		if err != nil {
			return err
		}
		printJSON(stdout, acc)
		return nil

	case "login":
		u := sub.String("u", "", "username")
		p := sub.String("p", "", "password")
		if err := sub.Parse(rest); err != nil {
			return errUsage
		}
		if *u == "" {
			return errors.New("need -u")
		}
		if *p == "" {
			pw, err := promptPassword(stderr, "Password: ")
			if err != nil {
				return err
			}
			*p = pw
		}
		resp, err := cli.login(ctx, *u, *p)
		if err != nil {
			return err
		}
		exp := resp.ExpiresAt
		if exp.IsZero() {
			exp = tokenExpiry(resp.Token)
		}
		if err := saveToken(tokenFile{AccessToken: resp.Token, ExpiresAt: exp, Username: resp.User.Username}); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "ok")
		return nil

	case "logout":
		return clearToken()
	}

	// everything below needs a session
	tf, err := loadToken()
	if err != nil {
		return err
	}
	cli.token = tf.AccessToken

	switch cmd {
	case "me":
		acc, err := cli.account(ctx, tf.Username)
		if err != nil {
			return err
		}
		printJSON(stdout, acc)

	case "update":
		// only flags given on the command line are sent
		sub.String("p", "", "new password")
		sub.String("e", "", "new email")
		sub.String("b", "", "new birthday YYYY-MM-DD")
		if err := sub.Parse(rest); err != nil {
			return errUsage
		}
		var req updateRequest
		sub.Visit(func(f *flag.Flag) {
			v := f.Value.String()
			switch f.Name {
			case "p":
				req.Password = &v
			case "e":
				req.Email = &v
			case "b":
				req.Birthday = &v
			}
		})
		acc, err := cli.update(ctx, tf.Username, req)
		if err != nil {
			return err
		}
		if req.Password != nil {
			// the server revoked this token
			_ = clearToken()
			fmt.Fprintln(stderr, "password changed; login again")
		}
		printJSON(stdout, acc)

	case "fav-add", "fav-rm":
		id := sub.String("id", "", "movie id")
		if err := sub.Parse(rest); err != nil {
			return errUsage
		}
		if *id == "" {
			return errors.New("need -id")
		}
		var acc *account
		if cmd == "fav-add" {
			acc, err = cli.addFavorite(ctx, tf.Username, *id)
		} else {
			acc, err = cli.removeFavorite(ctx, tf.Username, *id)
		}
		if err != nil {
			return err
		}
		printJSON(stdout, acc.FavoriteMovies)

	case "delete":
		msg, err := cli.deleteAccount(ctx, tf.Username)
		if err != nil {
			return err
		}
		_ = clearToken()
		fmt.Fprintln(stdout, msg)

	case "movies":
		ms, err := cli.movies(ctx)
		if err != nil {
			return err
		}
		printJSON(stdout, ms)

	case "movie", "genre", "director":
		name := "n"
		if cmd == "movie" {
			name = "t"
		}
		v := sub.String(name, "", "title or name")
		if err := sub.Parse(rest); err != nil {
			return errUsage
		}
		if *v == "" {
			return fmt.Errorf("need -%s", name)
		}
		var out any
		switch cmd {
		case "movie":
			out, err = cli.movie(ctx, *v)
		case "genre":
			out, err = cli.genre(ctx, *v)
		default:
			out, err = cli.director(ctx, *v)
		}
		if err != nil {
			return err
		}
		printJSON(stdout, out)

	default:
		return errUsage
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
