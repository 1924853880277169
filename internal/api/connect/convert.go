package connect

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/breathbox/internal/app/session"
	"github.com/osa030/breathbox/internal/app/settings"
	"github.com/osa030/breathbox/internal/domain/exercise"
)

// settingsPatch carries the settings fields present in an UpdateSettings request.
type settingsPatch struct {
	SoundEnabled      *bool   `mapstructure:"sound_enabled"`
	HapticsEnabled    *bool   `mapstructure:"haptics_enabled"`
	AnimationsEnabled *bool   `mapstructure:"animations_enabled"`
	SoundPack         *string `mapstructure:"sound_pack"`
}

func (p settingsPatch) apply(s *settings.Settings) {
	if p.SoundEnabled != nil {
		s.SoundEnabled = *p.SoundEnabled
	}
	if p.HapticsEnabled != nil {
		s.HapticsEnabled = *p.HapticsEnabled
	}
	if p.AnimationsEnabled != nil {
		s.AnimationsEnabled = *p.AnimationsEnabled
	}
	if p.SoundPack != nil {
		s.SoundPack = settings.SoundPack(*p.SoundPack)
	}
}

// decodeStrict decodes a request struct into out, rejecting unknown keys.
func decodeStrict(msg *structpb.Struct, tag string, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     tag,
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(msg.AsMap()); err != nil {
		return errors.Wrap(err, "failed to decode request")
	}
	return nil
}

func decodeSettingsPatch(msg *structpb.Struct) (settingsPatch, error) {
	var p settingsPatch
	if err := decodeStrict(msg, "mapstructure", &p); err != nil {
		return settingsPatch{}, err
	}
	return p, nil
}

func decodeExercise(msg *structpb.Struct) (exercise.Exercise, error) {
	var ex exercise.Exercise
	if err := decodeStrict(msg, "json", &ex); err != nil {
		return exercise.Exercise{}, err
	}
	return ex, nil
}

func exerciseFields(ex exercise.Exercise) map[string]any {
	fields := map[string]any{
		"id":            ex.ID,
		"title":         ex.Title,
		"inhale":        ex.Inhale,
		"hold1":         ex.Hold1,
		"exhale":        ex.Exhale,
		"hold2":         ex.Hold2,
		"pattern":       ex.Pattern(),
		"cycle_seconds": ex.Durations().Total().Seconds(),
		"custom":        ex.Custom,
	}
	optional := map[string]string{
		"short_description": ex.ShortDescription,
		"description":       ex.Description,
		"benefit":           ex.Benefit,
		"method":            ex.Method,
		"symbol":            ex.Symbol,
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}
	return fields
}

func settingsFields(s settings.Settings) map[string]any {
	return map[string]any{
		"sound_enabled":      s.SoundEnabled,
		"haptics_enabled":    s.HapticsEnabled,
		"animations_enabled": s.AnimationsEnabled,
		"sound_pack":         string(s.SoundPack),
	}
}

func statusFields(st session.Status) map[string]any {
	fields := map[string]any{
		"session_id":  st.SessionID,
		"exercise_id": st.ExerciseID,
		"intent":      st.Intent.String(),
		"controls":    st.Controls.String(),
		"background":  st.Background,
		"entered_at":  st.EnteredAt.UTC().Format(time.RFC3339Nano),
		"exercise":    exerciseFields(st.Exercise),
		"cycle": map[string]any{
			"running":                st.Cycle.Running,
			"paused":                 st.Cycle.Paused,
			"phase":                  st.Cycle.Phase.String(),
			"label":                  st.Cycle.Phase.Label(),
			"time_left":              st.Cycle.TimeLeft,
			"remaining_seconds":      st.Cycle.Remaining.Seconds(),
			"phase_duration_seconds": st.Cycle.PhaseDuration.Seconds(),
			"cycle":                  st.Cycle.Cycle,
		},
		"shape": map[string]any{
			"radius":       st.Shape.Radius,
			"stroke_width": st.Shape.StrokeWidth,
			"animating":    st.Animating,
		},
		"vibrating": st.Vibrating,
	}
	if st.FirstStartAt != nil {
		fields["first_start_at"] = st.FirstStartAt.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode response")
	}
	return s, nil
}
