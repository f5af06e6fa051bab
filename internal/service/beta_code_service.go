package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/SteveWTK/neptunes-tribe-english-sub006/config"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/dto"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/model"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/internal/repository"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/clock"
	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
)

// ── beta code errors ──

var (
	ErrBetaCodeEmpty    = pkgerrors.Validation("invitation code is required")
	ErrBetaCodeNotFound = pkgerrors.NotFound("invitation code")
	ErrBetaCodeUsed     = pkgerrors.AlreadyUsed("invitation code has already been used")
	ErrBetaCodeExpired  = pkgerrors.Expired("invitation code has expired")
	ErrBetaExportEmpty  = pkgerrors.NotFound("invitation codes")
)

// codeAlphabet leaves out 0/O and 1/I/L.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// roleRank orders roles so a redemption never downgrades a user.
var roleRank = map[string]int{
	model.RoleGuest:      0,
	model.RoleUser:       1,
	model.RoleBetaTester: 2,
	model.RolePremium:    3,
	model.RoleAdmin:      4,
}

// BetaCodeService beta invitation codes.
type BetaCodeService interface {
	// Redeem claims a code for userID and elevates the user's role. A code is
	// claimed at most once even under concurrent redemption.
	Redeem(ctx context.Context, userID string, req *dto.RedeemBetaCodeRequest) (*dto.RedeemBetaCodeResponse, error)
	GenerateBatch(ctx context.Context, req *dto.GenerateBetaCodesRequest, createdBy string) (*dto.GenerateBetaCodesResponse, error)
	List(ctx context.Context, req *dto.BetaCodeListRequest) ([]dto.BetaCodeResponse, int64, error)
	// Export renders codes as an .xlsx workbook and suggests a file name.
	Export(ctx context.Context, req *dto.BetaCodeExportRequest) (*bytes.Buffer, string, error)
}

type betaCodeService struct {
	cfg    *config.BetaConfig
	repo   *repository.Repository
	clock  clock.Clock
	logger *zap.Logger
}

// NewBetaCodeService creates a BetaCodeService.
func NewBetaCodeService(cfg *config.BetaConfig, repo *repository.Repository, clk clock.Clock, logger *zap.Logger) BetaCodeService {
	return &betaCodeService{cfg: cfg, repo: repo, clock: clk, logger: logger}
}

// NormalizeCode trims and upper-cases a user-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ────────────────────── Redeem ──────────────────────

func (s *betaCodeService) Redeem(ctx context.Context, userID string, req *dto.RedeemBetaCodeRequest) (*dto.RedeemBetaCodeResponse, error) {
	code := NormalizeCode(req.Code)
	if code == "" {
		return nil, ErrBetaCodeEmpty
	}

	bc, err := s.repo.BetaCode.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBetaCodeNotFound
		}
		s.logger.Error("load invitation code failed", zap.Error(err))
		return nil, err
	}

	now := s.clock.Now().UTC()
	if bc.IsUsed {
		return nil, ErrBetaCodeUsed
	}
	if bc.ExpiresAt != nil && !bc.ExpiresAt.After(now) {
		return nil, ErrBetaCodeExpired
	}

	role := ""
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		claimed, err := tx.BetaCode.MarkUsed(ctx, code, userID, now)
		if err != nil {
			return err
		}
		if !claimed {
			// lost the race against another redemption
			return ErrBetaCodeUsed
		}

		user, err := tx.User.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		role = user.Role
		if roleRank[user.Role] < roleRank[s.cfg.ElevatedRole] {
			if err := tx.User.UpdateRole(ctx, userID, s.cfg.ElevatedRole); err != nil {
				return err
			}
			role = s.cfg.ElevatedRole
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrBetaCodeUsed) && !errors.Is(err, ErrUserNotFound) {
			s.logger.Error("redeem invitation code failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("invitation code redeemed",
		zap.String("user_id", userID),
		zap.String("organization", bc.Organization),
		zap.String("role", role),
	)

	return &dto.RedeemBetaCodeResponse{
		Code:         code,
		Organization: bc.Organization,
		Role:         role,
		RedeemedAt:   formatTime(now),
	}, nil
}

// ────────────────────── GenerateBatch ──────────────────────

func (s *betaCodeService) GenerateBatch(ctx context.Context, req *dto.GenerateBetaCodesRequest, createdBy string) (*dto.GenerateBetaCodesResponse, error) {
	if req.Count < 1 {
		return nil, pkgerrors.Validation("count must be at least 1")
	}
	if req.ExpiresInDays < 0 {
		return nil, pkgerrors.Validation("expiry must not be in the past")
	}
	if req.Count > s.cfg.MaxBatch {
		return nil, pkgerrors.Validation("at most %d codes can be generated at once", s.cfg.MaxBatch)
	}
	org := strings.TrimSpace(req.Organization)
	if org == "" {
		return nil, pkgerrors.Validation("organization is required")
	}

	var expiresAt *time.Time
	if req.ExpiresInDays > 0 {
		t := s.clock.Now().UTC().AddDate(0, 0, req.ExpiresInDays)
		expiresAt = &t
	}

	var creator *string
	if createdBy != "" {
		creator = &createdBy
	}

	batchID := uuid.NewString()
	seen := make(map[string]struct{}, req.Count)
	rows := make([]*model.BetaInvitationCode, 0, req.Count)
	for len(rows) < req.Count {
		code, err := randomCode(s.cfg.CodeLength)
		if err != nil {
			s.logger.Error("generate invitation code failed", zap.Error(err))
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		rows = append(rows, &model.BetaInvitationCode{
			Code:         code,
			Organization: org,
			BatchID:      batchID,
			ExpiresAt:    expiresAt,
			CreatedBy:    creator,
		})
	}

	if err := s.repo.BetaCode.CreateBatch(ctx, rows); err != nil {
		s.logger.Error("store invitation codes failed", zap.String("organization", org), zap.Error(err))
		return nil, err
	}

	codes := make([]string, len(rows))
	for i, r := range rows {
		codes[i] = r.Code
	}

	s.logger.Info("invitation codes generated",
		zap.String("batch_id", batchID),
		zap.String("organization", org),
		zap.Int("count", len(codes)),
	)

	return &dto.GenerateBetaCodesResponse{
		BatchID:      batchID,
		Organization: org,
		ExpiresAt:    formatTimePtr(expiresAt),
		Codes:        codes,
	}, nil
}

func randomCode(length int) (string, error) {
	if length <= 0 {
		length = 8
	}
	size := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// ────────────────────── List ──────────────────────

func (s *betaCodeService) List(ctx context.Context, req *dto.BetaCodeListRequest) ([]dto.BetaCodeResponse, int64, error) {
	filters := &repository.BetaCodeListFilters{
		Organization: req.Organization,
		BatchID:      req.BatchID,
		Used:         req.Used,
	}
	rows, total, err := s.repo.BetaCode.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("list invitation codes failed", zap.Error(err))
		return nil, 0, err
	}
	out := make([]dto.BetaCodeResponse, 0, len(rows))
	for i := range rows {
		out = append(out, toBetaCodeResponse(&rows[i]))
	}
	return out, total, nil
}

// ────────────────────── Export ──────────────────────

func (s *betaCodeService) Export(ctx context.Context, req *dto.BetaCodeExportRequest) (*bytes.Buffer, string, error) {
	rows, _, err := s.repo.BetaCode.List(ctx, &repository.BetaCodeListFilters{
		Organization: req.Organization,
		BatchID:      req.BatchID,
	}, 0, 0)
	if err != nil {
		s.logger.Error("load invitation codes for export failed", zap.Error(err))
		return nil, "", err
	}
	if len(rows) == 0 {
		return nil, "", ErrBetaExportEmpty
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Codes"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", err
	}

	headers := []string{"Code", "Organization", "Batch", "Used", "Used At", "Expires At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, headerStyle)
	}

	for r, c := range rows {
		values := []interface{}{
			c.Code,
			c.Organization,
			c.BatchID,
			usedLabel(c.IsUsed),
			optionalTime(c.UsedAt),
			optionalTime(c.ExpiresAt),
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 14)
	_ = f.SetColWidth(sheet, "B", "C", 38)
	_ = f.SetColWidth(sheet, "D", "F", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("render invitation code workbook failed", zap.Error(err))
		return nil, "", err
	}

	name := "invitation-codes"
	if req.BatchID != "" {
		name += "-" + req.BatchID
	} else if req.Organization != "" {
		name += "-" + slug(req.Organization)
	}
	return buf, fmt.Sprintf("%s.xlsx", name), nil
}

func usedLabel(used bool) string {
	if used {
		return "yes"
	}
	return "no"
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return b.String()
}

func toBetaCodeResponse(c *model.BetaInvitationCode) dto.BetaCodeResponse {
	return dto.BetaCodeResponse{
		Code:         c.Code,
		Organization: c.Organization,
		BatchID:      c.BatchID,
		IsUsed:       c.IsUsed,
		UsedBy:       c.UsedBy,
		UsedAt:       formatTimePtr(c.UsedAt),
		ExpiresAt:    formatTimePtr(c.ExpiresAt),
		CreatedAt:    formatTime(c.CreatedAt),
	}
}
