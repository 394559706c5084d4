package services

import (
	"context"
	"errors"
	"testing"

	"github.com/modguard/go-chat-moderator/internal/domain"
)

// stubManual records the reverse operations manual actions invoke.
type stubManual struct {
	deleted []int64
	unmuted []int64
	unbans  []int64
}

func (m *stubManual) DeleteMessage(_ context.Context, _, messageID int64) domain.EnforcementOutcome {
	m.deleted = append(m.deleted, messageID)
	return domain.EnforcementOutcome{Action: domain.ActionDelete, Succeeded: true}
}

func (m *stubManual) Unmute(_ context.Context, _, userID int64) domain.EnforcementOutcome {
	m.unmuted = append(m.unmuted, userID)
	return domain.EnforcementOutcome{Action: domain.ActionMute, Succeeded: true}
}

func (m *stubManual) Unban(_ context.Context, _, userID, senderChatID int64) domain.EnforcementOutcome {
	if senderChatID != 0 {
		m.unbans = append(m.unbans, senderChatID)
	} else {
		m.unbans = append(m.unbans, userID)
	}
	return domain.EnforcementOutcome{Action: domain.ActionBan, Succeeded: true}
}

func newAdminService(t *testing.T) (*AdminService, *stubEnforcer, *stubManual) {
	t.Helper()
	enf := &stubEnforcer{succeed: true}
	manual := &stubManual{}
	return &AdminService{DB: newServiceDB(t), Executor: enf, Manual: manual}, enf, manual
}

func TestGetConfig_NotFound(t *testing.T) {
	s, _, _ := newAdminService(t)
	if _, err := s.GetConfig(context.Background(), -100); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("err = %v, want ErrConfigNotFound", err)
	}
}

func TestUpdateConfig_RoundTrip(t *testing.T) {
	s, _, _ := newAdminService(t)
	ctx := context.Background()

	cfg := domain.DefaultChatConfig(-100)
	cfg.Prompt = "no self-promotion"
	if err := s.UpdateConfig(ctx, &cfg); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	got, err := s.GetConfig(ctx, -100)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if got.Prompt != "no self-promotion" {
		t.Fatalf("prompt = %q", got.Prompt)
	}
}

func TestUpdateConfig_RejectsInvalid(t *testing.T) {
	s, _, _ := newAdminService(t)
	ctx := context.Background()

	cfg := domain.DefaultChatConfig(-100)
	cfg.FirstMessages = -1
	if err := s.UpdateConfig(ctx, &cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("negative cutoff err = %v, want ErrInvalidConfig", err)
	}

	cfg = domain.DefaultChatConfig(-100)
	cfg.Actions[domain.JudgementHarmful] = domain.Action("nuke")
	if err := s.UpdateConfig(ctx, &cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("unknown action err = %v, want ErrInvalidConfig", err)
	}

	cfg = domain.DefaultChatConfig(-100)
	cfg.Actions[domain.Judgement("Meh")] = domain.ActionDelete
	if err := s.UpdateConfig(ctx, &cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("unknown judgement err = %v, want ErrInvalidConfig", err)
	}
}

func TestApply_DeleteMessage(t *testing.T) {
	s, _, manual := newAdminService(t)
	out, err := s.Apply(context.Background(), ManualAction{ChatID: -100, Action: domain.ActionDelete, MessageID: 7})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !out.Succeeded || len(manual.deleted) != 1 || manual.deleted[0] != 7 {
		t.Fatalf("out = %+v, deleted = %v", out, manual.deleted)
	}

	_, total, err := s.ListAudit(context.Background(), -100, 0, 10)
	if err != nil || total != 1 {
		t.Fatalf("audit total = %d, err = %v", total, err)
	}
}

func TestApply_BanAndUnban(t *testing.T) {
	s, enf, manual := newAdminService(t)
	ctx := context.Background()

	if _, err := s.Apply(ctx, ManualAction{ChatID: -100, Action: domain.ActionBan, UserID: 100}); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if len(enf.executed) != 1 || enf.executed[0].Action != domain.ActionBan {
		t.Fatalf("executed = %+v", enf.executed)
	}
	if enf.executed[0].Trigger != domain.TriggerManual {
		t.Fatalf("trigger = %s, want manual", enf.executed[0].Trigger)
	}

	if _, err := s.Apply(ctx, ManualAction{ChatID: -100, Action: domain.ActionBan, UserID: 100, Undo: true}); err != nil {
		t.Fatalf("unban: %v", err)
	}
	if len(manual.unbans) != 1 || manual.unbans[0] != 100 {
		t.Fatalf("unbans = %v", manual.unbans)
	}
}

func TestApply_TempMuteCarriesDuration(t *testing.T) {
	s, enf, _ := newAdminService(t)
	if _, err := s.Apply(context.Background(), ManualAction{ChatID: -100, Action: domain.ActionTempMute, UserID: 100}); err != nil {
		t.Fatalf("temp mute: %v", err)
	}
	if enf.executed[0].MuteFor != domain.TempMuteDuration {
		t.Fatalf("muteFor = %v", enf.executed[0].MuteFor)
	}
}

func TestApply_InvalidRequests(t *testing.T) {
	s, _, _ := newAdminService(t)
	ctx := context.Background()

	if _, err := s.Apply(ctx, ManualAction{ChatID: -100, Action: domain.Action("nuke")}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("unknown action err = %v", err)
	}
	if _, err := s.Apply(ctx, ManualAction{ChatID: -100, Action: domain.ActionDelete}); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("delete without message err = %v", err)
	}
	if _, err := s.Apply(ctx, ManualAction{ChatID: -100, Action: domain.ActionMute}); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("mute without user err = %v", err)
	}
	if _, err := s.Apply(ctx, ManualAction{ChatID: -100, Action: domain.ActionBan}); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("ban without target err = %v", err)
	}
	if _, err := s.Apply(ctx, ManualAction{ChatID: -100, Action: domain.ActionDelete, MessageID: 7, Undo: true}); !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("undelete err = %v", err)
	}

	if _, total, _ := s.ListAudit(ctx, -100, 0, 10); total != 0 {
		t.Fatalf("invalid requests wrote %d audit rows", total)
	}
}
