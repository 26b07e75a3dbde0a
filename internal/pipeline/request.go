package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/video-stream/clipper/internal/storage"
)

// DefaultLanguage is used when a FetchRequest names none.
const DefaultLanguage = "en"

// defaultClipExt is appended to output names that carry no extension.
const defaultClipExt = ".mp4"

// FetchRequest asks for the subtitle track of one language.
type FetchRequest struct {
	SourceURL string
	Language  string
}

// ClipRequest asks for the [Start, End] span of a source written to OutputName.
type ClipRequest struct {
	SourceURL  string
	Start      string
	End        string
	OutputName string
}

func (r FetchRequest) normalize() FetchRequest {
	r.SourceURL = strings.TrimSpace(r.SourceURL)
	r.Language = strings.TrimSpace(r.Language)
	if r.Language == "" {
		r.Language = DefaultLanguage
	}
	return r
}

// Validate checks the request after defaults are applied.
func (r FetchRequest) Validate() error {
	r = r.normalize()
	return errors.Join(validateSourceURL(r.SourceURL), validateLanguage(r.Language))
}

func (r ClipRequest) normalize() ClipRequest {
	r.SourceURL = strings.TrimSpace(r.SourceURL)
	r.Start = strings.TrimSpace(r.Start)
	r.End = strings.TrimSpace(r.End)
	r.OutputName = strings.TrimSpace(r.OutputName)
	if r.OutputName != "" && filepath.Ext(r.OutputName) == "" {
		r.OutputName += defaultClipExt
	}
	return r
}

// Validate checks the request after defaults are applied. The order of Start and End
// is left to the fetch engine.
func (r ClipRequest) Validate() error {
	r = r.normalize()
	var errs []error
	errs = append(errs, validateSourceURL(r.SourceURL))
	if _, err := ParseTimecode(r.Start); err != nil {
		errs = append(errs, fmt.Errorf("start: %w", err))
	}
	if _, err := ParseTimecode(r.End); err != nil {
		errs = append(errs, fmt.Errorf("end: %w", err))
	}
	if err := storage.ValidateName(r.OutputName); err != nil {
		errs = append(errs, fmt.Errorf("outputName: %w", err))
	} else if storage.KindOf(r.OutputName) != storage.KindVideo {
		errs = append(errs, fmt.Errorf("outputName: %q is not a video file name", r.OutputName))
	}
	return errors.Join(errs...)
}

// Section builds the fetch engine's inclusive range selector.
func (r ClipRequest) Section() string {
	return "*" + r.Start + "-" + r.End
}

func validateSourceURL(raw string) error {
	if raw == "" {
		return errors.New("videoUrl is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("videoUrl: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("videoUrl: scheme %q not supported", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("videoUrl: host is required")
	}
	return nil
}

var langToken = regexp.MustCompile(`^[A-Za-z0-9]+([-_][A-Za-z0-9]+)*$`)

// validateLanguage accepts a single BCP 47 style tag. Engine selector syntax such as
// lists, regexes or "all" is refused: one locale per request.
func validateLanguage(tag string) error {
	if tag == "" {
		return errors.New("lang is required")
	}
	if len(tag) > 35 || !langToken.MatchString(tag) || strings.EqualFold(tag, "all") {
		return fmt.Errorf("lang %q is not a language tag", tag)
	}
	if _, err := language.Parse(tag); err != nil {
		return fmt.Errorf("lang %q: %w", tag, err)
	}
	return nil
}

var (
	secondsForm = regexp.MustCompile(`^(\d+)(\.\d+)?$`)
	clockForm   = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2}):(\d{1,2})(\.\d+)?$`)
)

// ParseTimecode accepts HH:MM:SS[.fff], MM:SS[.fff] or plain seconds.
func ParseTimecode(tc string) (time.Duration, error) {
	if tc == "" {
		return 0, errors.New("timecode is required")
	}
	if m := secondsForm.FindStringSubmatch(tc); m != nil {
		secs, err := strconv.ParseFloat(tc, 64)
		if err != nil {
			return 0, fmt.Errorf("timecode %q: %w", tc, err)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	m := clockForm.FindStringSubmatch(tc)
	if m == nil {
		return 0, fmt.Errorf("timecode %q: want HH:MM:SS[.ms] or seconds", tc)
	}
	hours := 0
	if m[1] != "" {
		hours, _ = strconv.Atoi(m[1])
	}
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	if minutes > 59 || seconds > 59 {
		return 0, fmt.Errorf("timecode %q: minutes and seconds must be below 60", tc)
	}
	var frac float64
	if m[4] != "" {
		frac, _ = strconv.ParseFloat("0"+m[4], 64)
	}
	d := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(frac*float64(time.Second))
	return d, nil
}

// SubtitleName is the artifact name of a subtitle fetched by request id.
func SubtitleName(id, lang string) string {
	return subtitleBase(id) + "." + lang + ".vtt"
}

func subtitleBase(id string) string {
	return "video." + id
}

// EmbeddedName derives the name of a subtitled clip: "name.mp4" becomes "name_sub.mp4".
func EmbeddedName(clipName string) string {
	ext := filepath.Ext(clipName)
	return strings.TrimSuffix(clipName, ext) + "_sub" + ext
}
