package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"voiary/internal/client"
	"voiary/internal/feed"
	"voiary/internal/models"
	"voiary/internal/recorder"

	"github.com/jessevdk/go-flags"
)

type options struct {
	Server   string `short:"s" long:"server" env:"VOIARY_SERVER" default:"http://localhost:8080" description:"Diary server base URL"`
	Email    string `short:"e" long:"email" env:"VOIARY_EMAIL" description:"Account email"`
	Password string `short:"p" long:"password" env:"VOIARY_PASSWORD" description:"Account password"`
}

var opts options

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.AddCommand("signup", "Create an account", "", &signupCmd{})
	parser.AddCommand("login", "Verify credentials", "", &loginCmd{})
	parser.AddCommand("record", "Record a voice diary and upload it", "", &recordCmd{})
	parser.AddCommand("list", "List your diaries", "", &listCmd{})
	parser.AddCommand("public", "Browse the public diary feed", "", &publicCmd{})
	parser.AddCommand("play", "Play a diary entry", "", &playCmd{})

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	return client.New(opts.Server)
}

// signedInClient 建一个客户端并用全局凭据登录
func signedInClient(ctx context.Context) (*client.Client, error) {
	if opts.Email == "" || opts.Password == "" {
		return nil, errors.New("email and password required (flags or VOIARY_EMAIL/VOIARY_PASSWORD)")
	}
	c, err := newClient()
	if err != nil {
		return nil, err
	}
	if err := c.SignIn(ctx, opts.Email, opts.Password); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return c, nil
}

type signupCmd struct {
	DisplayName string `short:"n" long:"name" required:"true" description:"Display name shown on public diaries"`
}

func (cmd *signupCmd) Execute([]string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.SignUp(context.Background(), opts.Email, opts.Password, cmd.DisplayName); err != nil {
		return err
	}
	fmt.Println("account created, check your inbox for a confirmation mail")
	return nil
}

type loginCmd struct{}

func (cmd *loginCmd) Execute([]string) error {
	if _, err := signedInClient(context.Background()); err != nil {
		return err
	}
	fmt.Println("signed in")
	return nil
}

type recordCmd struct {
	Public  bool `long:"public" description:"Share the diary on the public feed"`
	Seconds int  `long:"seconds" description:"Stop automatically after this many seconds (0 = press Enter)"`
}

func (cmd *recordCmd) Execute([]string) error {
	ctx := context.Background()
	c, err := signedInClient(ctx)
	if err != nil {
		return err
	}

	rec := recorder.New(c, recorder.NewFFmpegDevice())
	if err := rec.Start(ctx); err != nil {
		return err
	}

	if cmd.Seconds > 0 {
		fmt.Printf("recording for %d seconds...\n", cmd.Seconds)
		time.Sleep(time.Duration(cmd.Seconds) * time.Second)
	} else {
		fmt.Println("recording... press Enter to stop")
		bufio.NewReader(os.Stdin).ReadString('\n')
	}

	clip, err := rec.Stop()
	if err != nil {
		if errors.Is(err, recorder.ErrEmptyClip) {
			return errors.New("nothing was captured, nothing uploaded")
		}
		return err
	}
	fmt.Printf("captured %d bytes (%s, %ds), uploading...\n", len(clip.Data), clip.MIME, clip.Duration)

	entry, err := c.Upload(ctx, clip, cmd.Public)
	if err != nil {
		return err
	}
	fmt.Printf("saved diary #%d at %s %s\n", entry.ID, entry.Date, entry.Time)
	return nil
}

type listCmd struct {
	Filter string `short:"f" long:"filter" description:"Filter by transcript or date substring"`
}

func (cmd *listCmd) Execute([]string) error {
	ctx := context.Background()
	c, err := signedInClient(ctx)
	if err != nil {
		return err
	}

	store := feed.NewStore()
	if err := store.Hydrate(ctx, c.Diaries); err != nil {
		return err
	}
	printEntries(store.Filter(cmd.Filter), false)
	return nil
}

type publicCmd struct{}

func (cmd *publicCmd) Execute([]string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	entries, err := c.PublicDiaries(context.Background())
	if err != nil {
		return err
	}
	printEntries(entries, true)
	return nil
}

type playCmd struct {
	ID     uint `long:"id" required:"true" description:"Diary entry id"`
	Public bool `long:"public" description:"Look the entry up in the public feed"`
}

func (cmd *playCmd) Execute([]string) error {
	ctx := context.Background()

	var c *client.Client
	var entries []models.DiaryEntry
	var err error
	if cmd.Public {
		if c, err = newClient(); err != nil {
			return err
		}
		entries, err = c.PublicDiaries(ctx)
	} else {
		if c, err = signedInClient(ctx); err != nil {
			return err
		}
		entries, err = c.Diaries(ctx)
	}
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.ID != cmd.ID {
			continue
		}
		ctrl := feed.NewController()
		player := newFFplayPlayer(c.AudioURL(e.AudioURL))
		ctrl.Register(e.ID, player)
		if !ctrl.Toggle(e.ID) {
			return errors.New("unable to start playback")
		}
		player.Wait()
		ctrl.OnEnded(e.ID)
		return nil
	}
	return fmt.Errorf("no diary entry with id %d", cmd.ID)
}

func printEntries(entries []models.DiaryEntry, public bool) {
	if len(entries) == 0 {
		fmt.Println("no diaries")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		if public {
			fmt.Fprintf(w, "#%d\t%s %s\t%ds\t%s\t%s\n",
				e.ID, e.Date, e.Time, e.Duration, e.UserDisplayName, e.Transcript)
		} else {
			fmt.Fprintf(w, "#%d\t%s %s\t%ds\t%s\n",
				e.ID, e.Date, e.Time, e.Duration, e.Transcript)
		}
	}
	w.Flush()
}
