package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/hedger/config"
	"gopkg.in/yaml.v3"
)

// GeneratedConfigFile is where the wizard writes the resulting config.
const GeneratedConfigFile = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the result to
// GeneratedConfigFile.
func RunTUI() error {
	def := config.Default()

	var (
		venueA          string
		venueB          string
		trackedStr      string
		pollIntervalStr string
		feeStr          string
		minTradeStr     string
		sizeFactorStr   string
		startingCashStr string
		webAddr         string
		confirm         bool
	)

	// defaults
	trackedStr = strings.Join(def.TrackedAssets, ",")
	pollIntervalStr = def.PollPriceInterval.String()
	feeStr = def.TakerFeeRate.String()
	minTradeStr = def.MinTradeUSD.String()
	sizeFactorStr = def.TradeSizeFactor.String()
	startingCashStr = def.StartingCashUSD.String()

	venueOptions := []huh.Option[string]{
		huh.NewOption("Binance", "binance"),
		huh.NewOption("Bybit", "bybit"),
		huh.NewOption("Hyperliquid", "hyperliquid"),
	}

	// step 1: venues
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("HEDGER CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Pick the two venues to hedge across.\n"))

	fmt.Println(stepStyle.Render("STEP 1: VENUES"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Reference venue (volatility and sizing)").
				Options(venueOptions...).
				Value(&venueA),
			huh.NewSelect[string]().
				Title("Counter venue").
				Options(venueOptions...).
				Value(&venueB),
		),
	).Run()
	if err != nil {
		return err
	}
	if venueA == venueB {
		return fmt.Errorf("venues must differ, got %s twice", venueA)
	}

	// step 2: assets
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("HEDGER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: ASSETS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Tracked Assets").
				Description("Comma-separated base assets hedged every cycle (e.g. XTZ,BONK,DOT)").
				Value(&trackedStr).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("at least one asset is required")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 3: timing
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("HEDGER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: TIMING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Poll Price Interval").
				Description("Duration string (e.g. 15s, 1m)").
				Value(&pollIntervalStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 4: sizing
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("HEDGER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: SIZING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Taker Fee Rate").
				Description("Proportional fee on the funding leg (e.g. 0.001)").
				Value(&feeStr).
				Validate(validateNonNegativeDecimal),
			huh.NewInput().
				Title("Min Trade USD").
				Description("Smallest notional worth executing").
				Value(&minTradeStr).
				Validate(validatePositiveDecimal),
			huh.NewInput().
				Title("Trade Size Factor").
				Description("Scales relative volatility into a USD notional").
				Value(&sizeFactorStr).
				Validate(validatePositiveDecimal),
			huh.NewInput().
				Title("Starting Cash USD per venue").
				Value(&startingCashStr).
				Validate(validateNonNegativeDecimal),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 5: dashboard
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("HEDGER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 5: DASHBOARD"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Dashboard Address").
				Description("Listen address for the web dashboard (e.g. :8080), empty disables").
				Value(&webAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("HEDGER CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Venue A: %s\nVenue B: %s\nAssets: %s\nInterval: %s\nFee: %s\nMin trade: %s USD\n",
		venueA, venueB, trackedStr, pollIntervalStr, feeStr, minTradeStr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	pollInterval, _ := time.ParseDuration(pollIntervalStr)

	tracked := make([]string, 0)
	for _, asset := range strings.Split(trackedStr, ",") {
		asset = strings.ToUpper(strings.TrimSpace(asset))
		if asset != "" {
			tracked = append(tracked, asset)
		}
	}

	cfgTmp := config.ConfigTmp{
		VenueA:             venueA,
		VenueB:             venueB,
		TrackedAssets:      tracked,
		TakerFeeRateStr:    feeStr,
		MinTradeUSDStr:     minTradeStr,
		TradeSizeFactorStr: sizeFactorStr,
		StartingCashStr:    startingCashStr,
		PollPriceInterval:  pollInterval,
		WebAddr:            webAddr,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	if err := os.WriteFile(GeneratedConfigFile, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting bot...", GeneratedConfigFile)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validatePositiveDecimal(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func validateNonNegativeDecimal(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
