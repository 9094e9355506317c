package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/chzchzchz/corrvis/calib"
	"github.com/chzchzchz/corrvis/pipeline"
	"github.com/chzchzchz/corrvis/radio"
	"github.com/chzchzchz/corrvis/scan"
	"github.com/chzchzchz/corrvis/store"
	"github.com/chzchzchz/corrvis/vis"
)

var rootCmd = &cobra.Command{
	Use:   "visproc",
	Short: "Calibrate and reduce correlator visibilities.",
}

var (
	optionsPath  string
	registryPath string
	window       int
	polName      string
	workers      int
	calibrate    bool
	closure      bool
	chanAvg      int
	lagDelays    bool
	source       string
	nants        int
	ncycles      int
	delayNs      float64
	outPath      string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&optionsPath, "options", "o", "", "YAML options file")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "options.db", "Options cache")

	spectraCmd := &cobra.Command{
		Use:   "spectra scanfile",
		Short: "Summarize the spectra of every cycle",
		Args:  cobra.ExactArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { spectra(args[0]) },
	}
	spectraCmd.Flags().IntVarP(&window, "window", "w", 1, "Window label")
	spectraCmd.Flags().StringVarP(&polName, "pol", "p", "XX", "Polarisation product")
	spectraCmd.Flags().IntVarP(&chanAvg, "chanavg", "c", 1, "Channels to average together")
	spectraCmd.Flags().BoolVar(&lagDelays, "lag", false, "Also estimate delays from the lag spectrum")
	rootCmd.AddCommand(spectraCmd)

	averageCmd := &cobra.Command{
		Use:   "average scanfile",
		Short: "Average every cycle over its tv channels",
		Args:  cobra.ExactArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { average(args[0]) },
	}
	averageCmd.Flags().IntVarP(&workers, "workers", "j", 4, "Worker goroutines")
	averageCmd.Flags().BoolVar(&calibrate, "calibrate", true, "Apply the configured Tsys calibration")
	averageCmd.Flags().BoolVar(&closure, "closure", false, "Compute closure phases")
	rootCmd.AddCommand(averageCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "tsys scanfile",
		Short: "Compute system temperatures from the noise diode",
		Args:  cobra.ExactArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { tsys(args[0]) },
	})

	ndcalCmd := &cobra.Command{
		Use:   "ndcal scanfile",
		Short: "Fit noise-diode amplitudes against a flux calibrator",
		Args:  cobra.ExactArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { ndcal(args[0]) },
	}
	ndcalCmd.Flags().IntVarP(&window, "window", "w", 1, "Window label")
	ndcalCmd.Flags().StringVarP(&source, "source", "s", "", "Calibrator name (default: first scan source)")
	rootCmd.AddCommand(ndcalCmd)

	optionsCmd := &cobra.Command{
		Use:   "options scanfile",
		Short: "Print the options used for a scan as YAML",
		Args:  cobra.ExactArgs(1),
		Run:   func(cmd *cobra.Command, args []string) { options(args[0]) },
	}
	optionsCmd.Flags().StringVar(&outPath, "out", "-", "Output file")
	rootCmd.AddCommand(optionsCmd)

	synthCmd := &cobra.Command{
		Use:   "synth",
		Short: "Write a synthetic calibrator scan",
		Run:   func(cmd *cobra.Command, args []string) { synth() },
	}
	synthCmd.Flags().IntVar(&nants, "antennas", 6, "Number of antennas")
	synthCmd.Flags().IntVar(&ncycles, "cycles", 10, "Number of cycles")
	synthCmd.Flags().Float64Var(&delayNs, "delay", 2.5, "Delay per antenna in ns")
	synthCmd.Flags().StringVar(&outPath, "out", "-", "Output file")
	rootCmd.AddCommand(synthCmd)
}

func mhz(f float64) string { return humanize.SIWithDigits(f*1e6, 3, "Hz") }

func spectra(inf string) {
	pol, err := scan.ParsePol(polName)
	if err != nil {
		panic(err)
	}
	reg := loadRegistry()
	defer saveRegistry(reg)
	sr, h, closer, err := openScan(inf)
	if err != nil {
		panic(err)
	}
	defer closer()
	for c := range sr.Cycles(context.Background()) {
		ap, err := vis.ComputeAmpPhase(h, c, window, pol, reg)
		if err != nil {
			log.Printf("cycle at %.1fs: %v", c.UTSeconds, err)
			continue
		}
		if chanAvg > 1 {
			wo := ap.Options.Window(window)
			if ap, err = vis.ChannelAverageAmpPhase(ap, chanAvg, wo.Averaging); err != nil {
				panic(err)
			}
		}
		fmt.Printf("%s window %d %v: %d channels %s to %s, amp %.4g..%.4g\n",
			scan.MJDTime(ap.MJD).Format(time.DateTime), ap.Window, ap.Pol, ap.NChannels(),
			mhz(ap.Frequency[0]), mhz(ap.Frequency[ap.NChannels()-1]),
			ap.Extrema.Amplitude.Min, ap.Extrema.Amplitude.Max)
		var lags [][]float64
		if lagDelays {
			lags = vis.ComputeLagDelays(ap)
		}
		delays := vis.ComputeDelays(ap, ap.PhaseInDegrees(), ap.Channel[0], ap.Channel[ap.NChannels()-1]+1)
		for bl := range ap.Spectra {
			a1, a2 := scan.BaselineAntennas(ap.Baselines[bl])
			for b := range ap.Spectra[bl] {
				sp := &ap.Spectra[bl][b]
				fmt.Printf("  %d-%d bin %d: %d/%d unflagged, delay mean %.3fns median %.3fns",
					a1, a2, sp.Bin, sp.Flagged.Len(), ap.NChannels(), delays[bl][b].Mean, delays[bl][b].Median)
				if lags != nil {
					fmt.Printf(" lag %.3fns", lags[bl][b])
				}
				fmt.Println()
			}
		}
	}
	if err := sr.Err(); err != nil {
		panic(err)
	}
}

func average(inf string) {
	reg := loadRegistry()
	defer saveRegistry(reg)
	sr, h, closer, err := openScan(inf)
	if err != nil {
		panic(err)
	}
	defer closer()

	ctx := context.Background()
	p := pipeline.NewProcessor(reg, pipeline.Config{Workers: workers, Calibrate: calibrate, Closure: closure})
	for r := range p.Run(ctx, h, sr.Cycles(ctx)) {
		if r.Err != nil {
			log.Printf("skipping cycle %d: %v", r.Seq, r.Err)
			continue
		}
		for _, prod := range r.Products {
			printQuantities(prod.Quantities)
		}
	}
	if err := sr.Err(); err != nil {
		panic(err)
	}
	st := p.Stats()
	log.Printf("processed %s cycles (%s failed) in %v",
		humanize.Comma(int64(st.Cycles)), humanize.Comma(int64(st.Failed)), st.Busy.Truncate(time.Millisecond))
}

func printQuantities(vq *vis.VisQuantities) {
	unit := "rad"
	if vq.PhaseInDegrees {
		unit = "deg"
	}
	fmt.Printf("%.1fs window %d %v\n", vq.UTSeconds, vq.Window, vq.Pol)
	for bl := range vq.Baselines {
		a1, a2 := scan.BaselineAntennas(vq.Baselines[bl])
		for b, bin := range vq.Bins[bl] {
			fmt.Printf("  %d-%d bin %d: amp %.4g phase %.3f%s delay %.3fns\n",
				a1, a2, bin, vq.Amplitude[bl][b], vq.Phase[bl][b], unit, vq.Delay[bl][b])
		}
		if vq.FlaggedBad[bl] > 0 {
			fmt.Printf("  %d-%d: %d bins partly flagged\n", a1, a2, vq.FlaggedBad[bl])
		}
	}
	if cp := vq.Closure; cp != nil {
		for i, tri := range cp.Triangles {
			for b := range cp.Phase[i] {
				fmt.Printf("  closure %d-%d-%d bin %d: %.3f%s %.3fns\n",
					tri[0], tri[1], tri[2], b+1, cp.Phase[i][b], unit, cp.Delay[i][b])
			}
		}
	}
}

func tsys(inf string) {
	reg := loadRegistry()
	defer saveRegistry(reg)
	sr, h, closer, err := openScan(inf)
	if err != nil {
		panic(err)
	}
	defer closer()
	for c := range sr.Cycles(context.Background()) {
		if err := vis.ComputeSystemTemperatures(c, h, reg); err != nil {
			log.Printf("cycle at %.1fs: %v", c.UTSeconds, err)
			continue
		}
		for widx, w := range h.Windows {
			fmt.Printf("%.1fs window %d (%s)\n", c.UTSeconds, w.Label, mhz(w.CentreFreqMHz))
			for _, a := range h.Antennas {
				r := c.Cal.Record(a.Number, widx)
				if r == nil {
					continue
				}
				fmt.Printf("  %s: online %.1f/%.1f computed %s/%s\n", a.Label,
					r.OnlineTsys[scan.FeedX], r.OnlineTsys[scan.FeedY],
					fmtTsys(r.ComputedTsys[scan.FeedX]), fmtTsys(r.ComputedTsys[scan.FeedY]))
			}
		}
	}
	if err := sr.Err(); err != nil {
		panic(err)
	}
}

func fmtTsys(t float64) string {
	if t == vis.TsysSentinel {
		return "-"
	}
	return fmt.Sprintf("%.1f", t)
}

func ndcal(inf string) {
	reg := loadRegistry()
	defer saveRegistry(reg)
	h, cycles, err := readCycles(inf)
	if err != nil {
		panic(err)
	}
	name := source
	if name == "" {
		name = h.SourceName(0)
	}
	models, err := calib.Models(name)
	if err != nil {
		panic(fmt.Errorf("%w (known: %v)", err, calib.Sources()))
	}
	nd, err := calib.ComputeNoiseDiodeAmplitudes(models, h, cycles, window, reg)
	if err != nil {
		panic(err)
	}
	fmt.Printf("window %d model %v: %.3fJy\n", nd.Window, nd.Model, nd.FluxJy)
	for i, ant := range nd.Antennas {
		fmt.Printf("  ant %d:", ant)
		for feed, label := range []string{"X", "Y"} {
			if v := nd.Amplitude[i][feed]; v == calib.ExcludedAmplitude {
				fmt.Printf(" %s excluded", label)
			} else {
				fmt.Printf(" %s %.3fJy (%d)", label, v, nd.Count[i][feed])
			}
		}
		fmt.Println()
	}
}

func options(inf string) {
	reg := loadRegistry()
	defer saveRegistry(reg)
	_, h, closer, err := openScan(inf)
	if err != nil {
		panic(err)
	}
	closer()
	o := reg.FindOrCreate(h)

	var bands []radio.FreqBand
	for _, w := range h.Windows {
		bands = append(bands, w.Band())
	}
	span := radio.BandRange(bands)
	log.Printf("%d windows covering %s in %d spans centred on %s", len(bands),
		mhz(span.Width), len(radio.BandMerge(bands)), mhz(span.Center))
	for _, wo := range o.Windows {
		log.Printf("window %d: tv channels [%d,%d) %v", wo.Label, wo.MinTvChannel, wo.MaxTvChannel, wo.Averaging)
	}

	w, closeOut, err := openOutput(outPath)
	if err != nil {
		panic(err)
	}
	defer closeOut()
	single := store.NewRegistry()
	single.Add(o.Clone())
	if err := single.ExportYAML(w); err != nil {
		panic(err)
	}
}

func main() {
	rootCmd.Execute()
}
