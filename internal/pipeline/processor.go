package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mgpai22/libersonora/internal/audio"
	"github.com/mgpai22/libersonora/internal/config"
	"github.com/mgpai22/libersonora/internal/enhance"
	"github.com/mgpai22/libersonora/internal/llm"
	"github.com/mgpai22/libersonora/internal/metrics"
	"github.com/mgpai22/libersonora/internal/naming"
	"github.com/mgpai22/libersonora/internal/resilient"
	"github.com/mgpai22/libersonora/internal/subtitle"
	"github.com/mgpai22/libersonora/internal/transcribe"
	"github.com/mgpai22/libersonora/internal/transform"
)

// stage names used in logs, metrics and FileError
const (
	StageNormalize  = "normalize"
	StageEnhance    = "enhance"
	StageTranscribe = "transcribe"
	StageCorrect    = "correct"
	StageTitle      = "title"
	StageTranslate  = "translate"
	StageSerialize  = "serialize"
	StagePersist    = "persist"
)

// builds the completer for one LLM-backed stage
type CompleterFactory func(ctx context.Context, cfg config.LlmConfig, stage string) (llm.Completer, error)

// provider completers whose calls share the retrier's attempt budget
func RetryingCompleters(retrier *resilient.Retrier) CompleterFactory {
	return func(ctx context.Context, cfg config.LlmConfig, stage string) (llm.Completer, error) {
		c, err := llm.Factory(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return llm.WithRetry(c, retrier, stage), nil
	}
}

// collaborators of a Processor
type Deps struct {
	Normalizer  audio.Normalizer
	Enhancer    enhance.Enhancer
	Transcriber transcribe.Transcriber
	Completers  CompleterFactory
	Reserver    *naming.Reserver
	Metrics     *metrics.Metrics
	Logger      *zap.SugaredLogger
	LRC         subtitle.LRCOptions
}

// outcome of one processed file
type Result struct {
	Index   int
	Source  string
	Title   string
	Names   naming.RenderedNames
	Cues    int
	Elapsed time.Duration
}

// runs the per-file pipeline:
// normalize, [enhance], transcribe, [correct], [title], [translate], serialize, persist
type Processor struct {
	deps Deps
	log  *zap.SugaredLogger
}

func NewProcessor(deps Deps) *Processor {
	if deps.Reserver == nil {
		deps.Reserver = naming.NewReserver()
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Processor{deps: deps, log: log}
}

// durationer is implemented by normalizers that know the length of their output
type durationer interface {
	Duration(wav []byte) time.Duration
}

// run holds the state of one file moving through the stages
type run struct {
	p        *Processor
	index    int
	unit     audio.Unit
	cfg      *config.PipelineConfig
	log      *zap.SugaredLogger
	stage    string
	wav      []byte
	segments []subtitle.Segment
	texts    []string
	title    string
	base     string
}

// Process runs every enabled stage for unit and writes its artifacts into outDir.
// Any failure aborts the remaining stages and is returned as a *FileError.
func (p *Processor) Process(ctx context.Context, index int, unit audio.Unit, cfg *config.PipelineConfig, outDir string) (Result, error) {
	start := time.Now()
	r := &run{
		p:     p,
		index: index,
		unit:  unit,
		cfg:   cfg,
		log:   p.log.With("file_index", index+1, "file", unit.Name()),
		base:  audio.Basename(unit),
	}
	r.log.Infow("Processing audio file")

	res, err := r.execute(ctx, outDir)
	p.deps.Metrics.FileDone(err)
	if err != nil {
		r.log.Errorw("Processing failed", "stage", r.stage, "elapsed", time.Since(start), "error", err)
		return Result{}, &FileError{Index: index, Name: unit.Name(), Stage: r.stage, Err: err}
	}

	res.Elapsed = time.Since(start)
	p.deps.Metrics.AddCues(res.Cues)
	r.log.Infow("Processing finished",
		"output", res.Names.Base,
		"cues", res.Cues,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

func (r *run) execute(ctx context.Context, outDir string) (Result, error) {
	if r.cfg == nil {
		r.stage = StageNormalize
		return Result{}, &config.ConfigurationError{Reason: "pipeline config is required"}
	}

	steps := []struct {
		name    string
		enabled bool
		fn      func(context.Context) error
	}{
		{StageNormalize, true, r.normalize},
		{StageEnhance, r.cfg.RemoveBackground, r.enhance},
		{StageTranscribe, true, r.transcribe},
		{StageCorrect, r.cfg.Correct != nil, r.correct},
		{StageTitle, r.cfg.GeneratesTitle(), r.generateTitle},
		{StageTranslate, r.cfg.Translate != nil, r.translate},
	}
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		if err := r.timed(ctx, s.name, s.fn); err != nil {
			return Result{}, err
		}
	}

	var srt, lrc string
	if err := r.timed(ctx, StageSerialize, func(context.Context) error {
		if !subtitle.SetTexts(r.segments, r.texts) {
			return fmt.Errorf("have %d texts for %d cues", len(r.texts), len(r.segments))
		}
		srt = subtitle.RenderSRT(r.segments)
		lrc = subtitle.RenderLRC(r.segments, r.p.deps.LRC)
		return nil
	}); err != nil {
		return Result{}, err
	}

	var names naming.RenderedNames
	if err := r.timed(ctx, StagePersist, func(ctx context.Context) error {
		var err error
		names, err = r.persist(ctx, outDir, srt, lrc)
		return err
	}); err != nil {
		return Result{}, err
	}

	return Result{
		Index:  r.index,
		Source: r.unit.Name(),
		Title:  r.title,
		Names:  names,
		Cues:   len(r.segments),
	}, nil
}

func (r *run) timed(ctx context.Context, name string, fn func(context.Context) error) error {
	r.stage = name
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	r.log.Debugw("Stage started", "stage", name)
	if err := fn(ctx); err != nil {
		return err
	}
	elapsed := time.Since(start)
	r.p.deps.Metrics.ObserveStage(name, elapsed)
	r.log.Infow("Stage finished", "stage", name, "elapsed", elapsed)
	return nil
}

func (r *run) normalize(ctx context.Context) error {
	if r.p.deps.Normalizer == nil {
		return &config.ConfigurationError{Field: "normalizer", Reason: "no audio normalizer configured"}
	}
	wav, err := r.p.deps.Normalizer.Normalize(ctx, r.unit)
	if err != nil {
		return err
	}
	r.wav = wav
	if d, ok := r.p.deps.Normalizer.(durationer); ok {
		r.p.deps.Metrics.AddAudio(d.Duration(wav))
	}
	return nil
}

func (r *run) enhance(ctx context.Context) error {
	if r.p.deps.Enhancer == nil {
		return &config.ConfigurationError{Field: "remove_background", Reason: "no enhancement service configured"}
	}
	wav, err := r.p.deps.Enhancer.Enhance(ctx, r.wav)
	if err != nil {
		return err
	}
	r.wav = wav
	return nil
}

func (r *run) transcribe(ctx context.Context) error {
	if r.p.deps.Transcriber == nil {
		return &config.ConfigurationError{Field: "transcriber", Reason: "no ASR service configured"}
	}
	raw, err := r.p.deps.Transcriber.Transcribe(ctx, r.wav, transcribe.Options{Hotwords: r.cfg.Hotwords()})
	if err != nil {
		return err
	}
	r.segments = subtitle.FormatSpeech(raw, r.cfg.MinTextLength())
	r.texts = subtitle.Texts(r.segments)
	r.log.Debugw("Transcript formatted", "sentences", len(raw), "cues", len(r.segments))
	return nil
}

func (r *run) completer(ctx context.Context, cfg config.LlmConfig, stage string) (llm.Completer, error) {
	if r.p.deps.Completers == nil {
		return nil, &config.ConfigurationError{Field: stage + ".llm", Reason: "no LLM factory configured"}
	}
	return r.p.deps.Completers(ctx, cfg, stage)
}

func (r *run) correct(ctx context.Context) error {
	c, err := r.completer(ctx, r.cfg.Correct.LLM, StageCorrect)
	if err != nil {
		return err
	}
	corrected, err := transform.NewCorrector(c, r.cfg.Correct.CommonErrors).Correct(ctx, r.texts)
	if err != nil {
		return err
	}
	for i := range corrected {
		corrected[i] = subtitle.TrimTrailingPunctuation(corrected[i])
	}
	r.texts = corrected
	return nil
}

func (r *run) generateTitle(ctx context.Context) error {
	tc := r.cfg.Title
	c, err := r.completer(ctx, tc.LLM, StageTitle)
	if err != nil {
		return err
	}
	gen := transform.NewTitleGenerator(c, tc.BookTitle, tc.Author, tc.Lang)
	title, err := gen.Generate(ctx, strings.Join(r.texts, "\n"))
	if err != nil {
		return err
	}
	r.title = title

	base, err := RenderBase(tc, r.index, title, audio.Basename(r.unit))
	if err != nil {
		return &config.ConfigurationError{Field: "title.rule", Reason: err.Error()}
	}
	r.base = base
	r.log.Infow("Title generated", "title", title, "basename", base)
	return nil
}

// RenderBase applies the naming rule to one file. An empty result falls back to origin.
func RenderBase(tc *config.TitleConfig, index int, title, origin string) (string, error) {
	groups, err := naming.Extract(origin, tc.RegexOrigin)
	if err != nil {
		return "", err
	}
	rendered, err := naming.Render(tc.Rule, naming.Fields{
		Origin:    origin,
		Index:     index,
		Title:     title,
		BookTitle: tc.BookTitle,
		Author:    tc.Author,
		Groups:    groups,
	})
	if err != nil {
		return "", err
	}
	if base := naming.Sanitize(rendered); base != "" {
		return base, nil
	}
	return origin, nil
}

func (r *run) translate(ctx context.Context) error {
	tc := r.cfg.Translate
	c, err := r.completer(ctx, tc.LLM, StageTranslate)
	if err != nil {
		return err
	}
	translated, err := transform.NewTranslator(c).Translate(ctx, tc.From, tc.To, r.texts)
	if err != nil {
		return err
	}
	r.texts = Interleave(r.texts, translated)
	return nil
}

// Interleave pairs each original line with its translation as "orig\ntrans",
// dropping trailing punctuation from the translation.
func Interleave(orig, translated []string) []string {
	out := make([]string, len(orig))
	for i := range orig {
		out[i] = orig[i]
		if i < len(translated) {
			out[i] += "\n" + subtitle.TrimTrailingPunctuation(translated[i])
		}
	}
	return out
}

func (r *run) persist(ctx context.Context, outDir, srt, lrc string) (naming.RenderedNames, error) {
	audioExt := ""
	if r.cfg.KeepsAudio() {
		audioExt = audio.Ext(r.unit)
	}

	names, err := r.p.deps.Reserver.Reserve(ctx, outDir, r.base, audioExt)
	if err != nil {
		return naming.RenderedNames{}, &PersistenceError{Path: outDir, Err: err}
	}

	if err := writeArtifacts(r.unit, names, srt, lrc); err != nil {
		removePaths(names.Paths())
		return naming.RenderedNames{}, err
	}
	return names, nil
}

func writeArtifacts(unit audio.Unit, names naming.RenderedNames, srt, lrc string) error {
	if names.Audio != "" {
		data, err := unit.Bytes()
		if err != nil {
			return &PersistenceError{Path: names.Audio, Err: err}
		}
		if err := os.WriteFile(names.Audio, data, 0644); err != nil {
			return &PersistenceError{Path: names.Audio, Err: err}
		}
	}
	if err := subtitle.WriteFile(names.SRT, srt); err != nil {
		return &PersistenceError{Path: names.SRT, Err: err}
	}
	if err := subtitle.WriteFile(names.LRC, lrc); err != nil {
		return &PersistenceError{Path: names.LRC, Err: err}
	}
	return nil
}

func removePaths(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
