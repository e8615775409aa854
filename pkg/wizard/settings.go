package wizard

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/goliatone/go-orderwizard/pkg/model"
	"github.com/goliatone/go-orderwizard/pkg/profile"
	"github.com/goliatone/go-orderwizard/pkg/steps"
	"github.com/goliatone/go-orderwizard/pkg/validation"
)

const settingsTitle = "Settings"

func settingsKey(userID string) string { return "settings:" + userID }

// SettingsWizard collects the user profile in two steps. Its sessions are kept
// under their own key, so an order in progress survives a settings round-trip.
type SettingsWizard struct {
	sessions *SessionStore
	profiles profile.Store
	logger   *zap.Logger
}

// NewSettingsWizard builds a settings flow over sessions and profiles.
func NewSettingsWizard(sessions *SessionStore, profiles profile.Store, logger *zap.Logger) (*SettingsWizard, error) {
	if sessions == nil || profiles == nil {
		return nil, errors.New("wizard: settings needs a session store and a profile store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsWizard{sessions: sessions, profiles: profiles, logger: logger}, nil
}

// Start opens settings step 1 prefilled with the saved profile.
func (s *SettingsWizard) Start(ctx context.Context, userID string) (Prompt, error) {
	saved, err := s.saved(ctx, userID)
	if err != nil {
		return Prompt{}, err
	}

	var prompt Prompt
	err = s.sessions.WithSession(ctx, settingsKey(userID), func(tx *Tx) error {
		tx.Session = &Session{
			UserID:    userID,
			State:     StateSettings1,
			Fields:    map[string]string{},
			CreatedAt: tx.Now,
		}
		tx.Save()
		prompt = settingsPrompt(userID, StateSettings1, steps.SettingsStep1(), saved)
		return nil
	})
	return prompt, err
}

// Step2Prompt re-renders the open settings step 2.
func (s *SettingsWizard) Step2Prompt(ctx context.Context, userID string) (Prompt, error) {
	saved, err := s.saved(ctx, userID)
	if err != nil {
		return Prompt{}, err
	}
	var prompt Prompt
	err = s.sessions.WithSession(ctx, settingsKey(userID), func(tx *Tx) error {
		if err := expect(tx, userID, StateSettings2); err != nil {
			return err
		}
		prompt = settingsPrompt(userID, StateSettings2, steps.SettingsStep2(), tx.Session.Fields, saved)
		return nil
	})
	return prompt, err
}

// SubmitStep1 validates name, email and address and opens step 2.
func (s *SettingsWizard) SubmitStep1(ctx context.Context, userID string, values map[string]string) (Prompt, error) {
	saved, err := s.saved(ctx, userID)
	if err != nil {
		return Prompt{}, err
	}

	var prompt Prompt
	err = s.sessions.WithSession(ctx, settingsKey(userID), func(tx *Tx) error {
		if err := expect(tx, userID, StateSettings1); err != nil {
			return err
		}

		answers, reqErr := collect(steps.SettingsStep1(), values)
		var emailErr error
		if v := answers[model.FieldEmail]; v != "" {
			answers[model.FieldEmail], emailErr = validation.CheckEmail(v)
		}
		if err := validation.Join("settings have invalid answers", reqErr, emailErr); err != nil {
			return err
		}

		tx.Session.Merge(answers)
		tx.Session.State = StateSettings2
		tx.Save()
		prompt = settingsPrompt(userID, StateSettings2, steps.SettingsStep2(), saved)
		return nil
	})
	return prompt, err
}

// SubmitStep2 stores the country, saves the profile and closes the session.
func (s *SettingsWizard) SubmitStep2(ctx context.Context, userID string, values map[string]string) (model.UserProfile, error) {
	var out model.UserProfile
	err := s.sessions.WithSession(ctx, settingsKey(userID), func(tx *Tx) error {
		if err := expect(tx, userID, StateSettings2); err != nil {
			return err
		}

		answers, err := collect(steps.SettingsStep2(), values)
		if err != nil {
			return err
		}
		tx.Session.Merge(answers)

		f := tx.Session.Fields
		p := model.UserProfile{
			FullName:   f[model.FieldFullName],
			Email:      f[model.FieldEmail],
			Street:     f[model.FieldStreet],
			City:       f[model.FieldCity],
			PostalCode: f[model.FieldPostalCode],
			Country:    f[model.FieldCountry],
		}
		if err := s.profiles.Set(ctx, userID, p); err != nil {
			return err
		}
		tx.Clear()
		out = p
		s.logger.Info("profile saved", zap.String("user", userID))
		return nil
	})
	return out, err
}

func (s *SettingsWizard) saved(ctx context.Context, userID string) (map[string]string, error) {
	p, ok, err := s.profiles.Get(ctx, userID)
	if err != nil || !ok {
		return nil, err
	}
	return map[string]string{
		model.FieldFullName:   p.FullName,
		model.FieldEmail:      p.Email,
		model.FieldStreet:     p.Street,
		model.FieldCity:       p.City,
		model.FieldPostalCode: p.PostalCode,
		model.FieldCountry:    p.Country,
	}, nil
}

func expect(tx *Tx, userID string, want State) error {
	if tx.Session == nil {
		return MissingSession(userID)
	}
	if tx.Session.State != want {
		return wrongStep(want, tx.Session.State)
	}
	return nil
}

func settingsPrompt(userID string, state State, fields []model.Field, defaults ...map[string]string) Prompt {
	step := 1
	if state == StateSettings2 {
		step = 2
	}
	return Prompt{
		UserID: userID,
		Title:  settingsTitle,
		State:  state,
		Step:   step,
		Steps:  2,
		Fields: withDefaults(fields, defaults...),
	}
}
