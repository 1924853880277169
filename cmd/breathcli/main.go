// Package main provides the remote control CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/breathbox/internal/api/connect"
)

var (
	app    = kingpin.New("breathcli", "breathbox remote control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8090").String()
	token  = app.Flag("token", "Control token (or set BREATHBOX_CONTROL_TOKEN env)").Envar("BREATHBOX_CONTROL_TOKEN").String()

	// open command
	openCmd     = app.Command("open", "Open the breathing screen")
	openNoStart = openCmd.Flag("no-start", "Do not start breathing automatically").Bool()

	startCmd  = app.Command("start", "Start or resume breathing")
	pauseCmd  = app.Command("pause", "Pause breathing")
	resumeCmd = app.Command("resume", "Resume breathing")
	toggleCmd = app.Command("toggle", "Toggle between breathing and paused")
	stopCmd   = app.Command("stop", "Stop breathing and leave the screen").Alias("exit")
	statusCmd = app.Command("status", "Show the breathing screen status")

	// exercise commands
	listCmd   = app.Command("list", "List exercises")
	selectCmd = app.Command("select", "Select the exercise for the next session")
	selectID  = selectCmd.Arg("id", "Exercise ID").Required().String()
	addCmd    = app.Command("add", "Add a custom exercise")
	addTitle  = addCmd.Arg("title", "Title").Required().String()
	addInhale = addCmd.Arg("inhale", "Inhale seconds").Required().Float64()
	addHold1  = addCmd.Arg("hold1", "Hold after inhale seconds").Required().Float64()
	addExhale = addCmd.Arg("exhale", "Exhale seconds").Required().Float64()
	addHold2  = addCmd.Arg("hold2", "Hold after exhale seconds").Required().Float64()

	// settings command; only flags given by the user are sent
	settingsCmd        = app.Command("settings", "Show or change settings")
	settingsSound      = settingsCmd.Flag("sound", "Enable cue audio").IsSetByUser(&soundSet).Bool()
	settingsHaptics    = settingsCmd.Flag("haptics", "Enable haptic cues").IsSetByUser(&hapticsSet).Bool()
	settingsAnimations = settingsCmd.Flag("animations", "Enable animations").IsSetByUser(&animationsSet).Bool()
	settingsPack       = settingsCmd.Flag("pack", "Sound pack (guzheng, sine, synth, off)").IsSetByUser(&packSet).String()

	// subscribe command
	subscribeCmd = app.Command("subscribe", "Stream breathing events")
)

var soundSet, hapticsSet, animationsSet, packSet bool

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)
	ctx := context.Background()

	var (
		result map[string]any
		err    error
	)

	switch command {
	case openCmd.FullCommand():
		result, err = client.Open(ctx, !*openNoStart)
	case startCmd.FullCommand():
		result, err = client.Start(ctx)
	case pauseCmd.FullCommand():
		result, err = client.Pause(ctx)
	case resumeCmd.FullCommand():
		result, err = client.Resume(ctx)
	case toggleCmd.FullCommand():
		result, err = client.Toggle(ctx)
	case stopCmd.FullCommand():
		err = client.StopAndExit(ctx)
		if err == nil {
			fmt.Println("Breathing screen closed")
			return
		}
	case statusCmd.FullCommand():
		result, err = client.GetStatus(ctx)
		if err == nil {
			printStatus(result)
			return
		}
	case listCmd.FullCommand():
		result, err = client.ListExercises(ctx)
		if err == nil {
			printExercises(result)
			return
		}
	case selectCmd.FullCommand():
		result, err = client.SelectExercise(ctx, *selectID)
	case addCmd.FullCommand():
		result, err = client.SaveExercise(ctx, map[string]any{
			"title":  *addTitle,
			"inhale": *addInhale,
			"hold1":  *addHold1,
			"exhale": *addExhale,
			"hold2":  *addHold2,
		})
	case settingsCmd.FullCommand():
		result, err = updateSettings(ctx, client)
	case subscribeCmd.FullCommand():
		err = subscribe(client)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if result != nil {
		printJSON(result)
	}
}

func updateSettings(ctx context.Context, client *apiconnect.Client) (map[string]any, error) {
	fields := map[string]any{}
	if soundSet {
		fields["sound_enabled"] = *settingsSound
	}
	if hapticsSet {
		fields["haptics_enabled"] = *settingsHaptics
	}
	if animationsSet {
		fields["animations_enabled"] = *settingsAnimations
	}
	if packSet {
		fields["sound_pack"] = *settingsPack
	}

	if len(fields) == 0 {
		return client.GetSettings(ctx)
	}
	return client.UpdateSettings(ctx, fields)
}

func subscribe(client *apiconnect.Client) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("Subscribed to breathing events (Ctrl+C to stop)")
	err := client.SubscribeEvents(ctx, func(ev map[string]any) bool {
		printEvent(ev)
		return true
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func printEvent(ev map[string]any) {
	typ, _ := ev["type"].(string)
	seq, _ := ev["sequence_no"].(float64)

	switch typ {
	case "phase_changed":
		fmt.Printf("[%d] %-10s %s (%.1fs)\n", int(seq), typ, ev["label"], ev["duration_seconds"])
	case "tick":
		fmt.Printf("[%d] %-10s %v\n", int(seq), typ, ev["time_left"])
	case "initial_state":
		fmt.Printf("[%d] %-10s route=%v\n", int(seq), typ, ev["route"])
	default:
		fmt.Printf("[%d] %s\n", int(seq), typ)
	}
}

func printStatus(st map[string]any) {
	ex, _ := st["exercise"].(map[string]any)
	cycle, _ := st["cycle"].(map[string]any)

	fmt.Println("\n=== BREATHING SCREEN ===")
	fmt.Printf("Session ID: %v\n", st["session_id"])
	fmt.Printf("Exercise: %v (%v)\n", ex["title"], ex["pattern"])
	fmt.Printf("Intent: %v\n", st["intent"])
	fmt.Printf("Controls: %v\n", st["controls"])
	if cycle != nil {
		fmt.Printf("Phase: %v\n", cycle["phase"])
		fmt.Printf("Time Left: %v\n", cycle["time_left"])
		fmt.Printf("Cycle: %v\n", cycle["cycle"])
	}
	fmt.Println()
}

func printExercises(list map[string]any) {
	items, _ := list["exercises"].([]any)
	current := list["current_id"]

	fmt.Println("Exercises:")
	for _, item := range items {
		ex, _ := item.(map[string]any)
		marker := " "
		if ex["id"] == current {
			marker = "*"
		}
		fmt.Printf(" %s %-38v %-20v %-10v %vs/cycle\n", marker, ex["id"], ex["title"], ex["pattern"], ex["cycle_seconds"])
	}
}

func printJSON(v map[string]any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(out))
}
