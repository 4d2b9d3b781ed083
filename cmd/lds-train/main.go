package main

import (
	"flag"
	"math"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/felolivee/CLOC-RNN-IPSID/dataset"
	"github.com/felolivee/CLOC-RNN-IPSID/signal"
	"github.com/felolivee/CLOC-RNN-IPSID/simulate"
	"github.com/felolivee/CLOC-RNN-IPSID/ssm"
	"github.com/felolivee/CLOC-RNN-IPSID/train"
)

var (
	configPath = flag.String("config", "", "TOML configuration file")
	dataPath   = flag.String("data", "", "series CSV; when empty a synthetic series is generated")
	outPath    = flag.String("out", "model.json", "checkpoint output path")
	dumpPath   = flag.String("dump-data", "", "optionally write the training series to this CSV")
	note       = flag.String("note", "", "note stored in the checkpoint metadata")
	verbose    = flag.Bool("v", false, "debug logging")
)

func init() {
	flag.Parse()

	log.SetLevel(log.InfoLevel)
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	log.SetFormatter(&log.TextFormatter{
		ForceColors: true,
	})
}

type stageConfig struct {
	Horizon   int     `toml:"horizon"`
	Stride    int     `toml:"stride"`
	BatchSize int     `toml:"batch_size"`
	Epochs    int     `toml:"epochs"`
	Optimizer string  `toml:"optimizer"`
	LearnRate float64 `toml:"learn_rate"`
	Momentum  float64 `toml:"momentum"`
	Clip      float64 `toml:"clip"`
	LogEvery  int     `toml:"log_every"`
}

func (sc stageConfig) config(seed int64) train.Config {
	return train.Config{
		Horizon:   sc.Horizon,
		Stride:    sc.Stride,
		BatchSize: sc.BatchSize,
		Epochs:    sc.Epochs,
		Optimizer: sc.Optimizer,
		LearnRate: sc.LearnRate,
		Momentum:  sc.Momentum,
		Clip:      sc.Clip,
		Seed:      seed,
		LogEvery:  sc.LogEvery,
	}
}

type fileConfig struct {
	Data struct {
		NY          int  `toml:"ny"`
		NU          int  `toml:"nu"`
		NZ          int  `toml:"nz"`
		Standardize bool `toml:"standardize"`
		Synthetic   struct {
			T            int     `toml:"t"`
			Ts           float64 `toml:"ts"`
			ObsNoise     float64 `toml:"obs_noise"`
			ProcessNoise float64 `toml:"process_noise"`
			Seed         int64   `toml:"seed"`
		} `toml:"synthetic"`
	} `toml:"data"`
	Model struct {
		BehaviorStates int   `toml:"behavior_states"`
		NeuralStates   int   `toml:"neural_states"`
		Nonlinear      bool  `toml:"nonlinear"`
		Seed           int64 `toml:"seed"`
	} `toml:"model"`
	Stage1   stageConfig `toml:"stage1"`
	Stage2   stageConfig `toml:"stage2"`
	Readouts stageConfig `toml:"readouts"`
}

func defaultConfig() fileConfig {
	var cfg fileConfig
	cfg.Data.NY, cfg.Data.NU, cfg.Data.NZ = 2, 1, 1
	cfg.Data.Standardize = true
	cfg.Data.Synthetic.T = 2000
	cfg.Data.Synthetic.Ts = 1e-2
	cfg.Data.Synthetic.ObsNoise = 0.02
	cfg.Data.Synthetic.Seed = 1

	cfg.Model.BehaviorStates = 4
	cfg.Model.Seed = 1

	base := stageConfig{
		Horizon:   32,
		Stride:    8,
		BatchSize: 16,
		Epochs:    200,
		Optimizer: "adam",
		LearnRate: 1e-3,
		Clip:      5,
	}
	cfg.Stage1 = base
	cfg.Stage2 = base
	cfg.Readouts = stageConfig{
		BatchSize: 64,
		Epochs:    100,
		Optimizer: "adam",
		LearnRate: 1e-3,
	}
	return cfg
}

func loadSeries(cfg fileConfig) (*dataset.Series, error) {
	if *dataPath != "" {
		return dataset.LoadCSV(*dataPath, cfg.Data.NY, cfg.Data.NU, cfg.Data.NZ)
	}

	// Synthetic benchmark: a damped rotation driven by a sine, with the
	// first state as the behavior signal.
	syn := cfg.Data.Synthetic
	input := []signal.VectorFunction{
		signal.NewInput(signal.Sine(1., 0.5, math.Pi/7.), mat.NewVecDense(2, []float64{1, 0})),
	}
	truth := ssm.NewDampedRotation(1., 0.5, input)
	behavior := mat.NewDense(1, 2, []float64{1, 0})
	return simulate.Continuous(truth, behavior, simulate.Config{
		T:            syn.T,
		Ts:           syn.Ts,
		ProcessNoise: syn.ProcessNoise,
		ObsNoise:     syn.ObsNoise,
		Seed:         syn.Seed,
	})
}

func main() {
	cfg := defaultConfig()
	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, &cfg); err != nil {
			log.Fatalf("reading config: %v", err)
		}
	}

	series, err := loadSeries(cfg)
	if err != nil {
		log.Fatalf("loading series: %v", err)
	}
	if cfg.Data.Standardize {
		series, _ = series.Standardize()
	}
	if *dumpPath != "" {
		if err := series.WriteCSV(*dumpPath); err != nil {
			log.Fatalf("writing series: %v", err)
		}
	}

	ny, nu, nz := series.Dims()
	log.WithFields(log.Fields{
		"steps": series.Len(),
		"ny":    ny,
		"nu":    nu,
		"nz":    nz,
	}).Info("series loaded")

	res, err := train.FitSystem(series, train.Options{
		BehaviorStates: cfg.Model.BehaviorStates,
		NeuralStates:   cfg.Model.NeuralStates,
		Nonlinear:      cfg.Model.Nonlinear,
		Stage1:         cfg.Stage1.config(cfg.Model.Seed),
		Stage2:         cfg.Stage2.config(cfg.Model.Seed + 1),
		Readouts:       cfg.Readouts.config(cfg.Model.Seed + 2),
		Seed:           cfg.Model.Seed,
	})
	if err != nil {
		log.Fatalf("fitting: %v", err)
	}

	meta := ssm.Meta{Note: *note, FinalLoss: res.FinalLoss()}
	meta, err = res.System.Save(*outPath, meta)
	if err != nil {
		log.Fatalf("saving checkpoint: %v", err)
	}
	log.WithFields(log.Fields{
		"id":   meta.ID,
		"path": *outPath,
		"loss": meta.FinalLoss,
	}).Info("checkpoint written")
}
