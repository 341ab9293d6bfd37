package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sanosuguru/go-event-registration/internal/application"
	"github.com/sanosuguru/go-event-registration/internal/config"
	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
)

// SeedFile は初期データの定義
type SeedFile struct {
	// Admin は承認操作を行う管理者のID
	Admin  string      `yaml:"admin"`
	Events []SeedEvent `yaml:"events"`
}

// SeedEvent は投入するイベント。Status まで遷移させる
type SeedEvent struct {
	Organizer            string          `yaml:"organizer"`
	Status               event.Status    `yaml:"status"`
	Title                string          `yaml:"title"`
	Description          string          `yaml:"description"`
	Venue                string          `yaml:"venue"`
	Kind                 event.Kind      `yaml:"kind"`
	Eligibility          string          `yaml:"eligibility"`
	StartAt              time.Time       `yaml:"start_at"`
	EndAt                *time.Time      `yaml:"end_at"`
	RegistrationDeadline *time.Time      `yaml:"registration_deadline"`
	SeatLimit            int             `yaml:"seat_limit"`
	RegistrationFee      int             `yaml:"registration_fee"`
	PurchaseLimit        int             `yaml:"purchase_limit"`
	TeamMode             bool            `yaml:"team_mode"`
	MinTeamSize          int             `yaml:"min_team_size"`
	MaxTeamSize          int             `yaml:"max_team_size"`
	FormFields           []SeedFormField `yaml:"form_fields"`
	Items                []SeedMerchItem `yaml:"items"`
}

// SeedFormField はフォーム項目
type SeedFormField struct {
	Label    string   `yaml:"label"`
	Type     string   `yaml:"type"`
	Options  []string `yaml:"options"`
	Required bool     `yaml:"required"`
}

// SeedMerchItem は商品
type SeedMerchItem struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Price       int           `yaml:"price"`
	Variants    []SeedVariant `yaml:"variants"`
}

// SeedVariant はサイズ・色ごとの在庫
type SeedVariant struct {
	Size  string `yaml:"size"`
	Color string `yaml:"color"`
	Stock int    `yaml:"stock"`
}

func newSeedCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "YAMLファイルからイベントを投入する",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			seed, err := parseSeed(f)
			if err != nil {
				return err
			}
			if cfg.App.StoreDriver == config.StoreMemory {
				logger.Warn("メモリストアへの投入はプロセス終了とともに失われます")
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ids, err := applySeed(cmd.Context(), a.eventService, seed)
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "シードファイルのパス (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// parseSeed はシードファイルを読み込む。未知のキーはエラーにする
func parseSeed(r io.Reader) (*SeedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed SeedFile
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, ev := range seed.Events {
		if ev.Organizer == "" {
			return nil, fmt.Errorf("events[%d]: organizer is required", i)
		}
		switch ev.Status {
		case "", event.StatusDraft, event.StatusPending:
		case event.StatusApproved, event.StatusOngoing:
			if seed.Admin == "" {
				return nil, fmt.Errorf("events[%d]: admin is required to seed %s events", i, ev.Status)
			}
		default:
			return nil, fmt.Errorf("events[%d]: unsupported status %q", i, ev.Status)
		}
	}
	return &seed, nil
}

func (s SeedEvent) details() event.Details {
	d := event.Details{
		Title:                s.Title,
		Description:          s.Description,
		Venue:                s.Venue,
		Kind:                 s.Kind,
		Eligibility:          s.Eligibility,
		StartAt:              s.StartAt,
		EndAt:                s.EndAt,
		RegistrationDeadline: s.RegistrationDeadline,
		SeatLimit:            s.SeatLimit,
		RegistrationFee:      s.RegistrationFee,
		PurchaseLimit:        s.PurchaseLimit,
		TeamMode:             s.TeamMode,
		MinTeamSize:          s.MinTeamSize,
		MaxTeamSize:          s.MaxTeamSize,
	}
	for _, f := range s.FormFields {
		d.FormFields = append(d.FormFields, event.FormField{
			Label:    f.Label,
			Type:     event.FieldType(f.Type),
			Options:  f.Options,
			Required: f.Required,
		})
	}
	for _, item := range s.Items {
		m := event.MerchandiseItem{Name: item.Name, Description: item.Description, Price: item.Price}
		for _, v := range item.Variants {
			m.Variants = append(m.Variants, event.Variant{Size: v.Size, Color: v.Color, Stock: v.Stock})
		}
		d.Items = append(d.Items, m)
	}
	return d
}

// applySeed はイベントを作成し、指定された状態まで遷移させる。作成したIDを返す
func applySeed(ctx context.Context, svc *application.EventService, seed *SeedFile) ([]string, error) {
	admin := identity.Principal{ID: seed.Admin, Role: identity.RoleAdmin}
	ids := make([]string, 0, len(seed.Events))

	for i, s := range seed.Events {
		organizer := identity.Principal{ID: s.Organizer, Role: identity.RoleOrganizer}
		status := s.Status
		if status == "" {
			status = event.StatusDraft
		}

		ev, err := svc.CreateEvent(ctx, organizer, application.CreateEventInput{
			Details: s.details(),
			Submit:  status != event.StatusDraft,
		})
		if err != nil {
			return ids, fmt.Errorf("events[%d] %q: %w", i, s.Title, err)
		}
		if status == event.StatusApproved || status == event.StatusOngoing {
			if _, err := svc.Review(ctx, admin, ev.ID, event.StatusApproved); err != nil {
				return ids, fmt.Errorf("events[%d] %q: %w", i, s.Title, err)
			}
		}
		if status == event.StatusOngoing {
			if _, err := svc.ChangeStatus(ctx, organizer, ev.ID, event.StatusOngoing); err != nil {
				return ids, fmt.Errorf("events[%d] %q: %w", i, s.Title, err)
			}
		}
		ids = append(ids, ev.ID)
		logger.Info("イベントを投入しました", zap.String("id", ev.ID), zap.String("title", s.Title), zap.String("status", string(status)))
	}
	return ids, nil
}
