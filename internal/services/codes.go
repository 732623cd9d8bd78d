package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zenithtrust/docuvault/internal/models"
	"gorm.io/gorm"
)

// CodeService generates the two human-shareable identifiers in the system:
// login codes (the sole authentication credential) and document codes
// (TYPE-YEAR-NNN display identifiers).
type CodeService struct {
	DB *gorm.DB
}

func NewCodeService(db *gorm.DB) *CodeService {
	return &CodeService{DB: db}
}

const loginCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateLoginCode produces a ZT-XXX-XXX code (X = base-36 upper-case). The
// original format is kept for compatibility; the random source is crypto/rand
// rather than the historical insecure generator. On repeated collision it
// falls back to ZT- plus an 8-character UUID slice.
func (s *CodeService) GenerateLoginCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		block1, err := randomLoginBlock()
		if err != nil {
			return "", err
		}
		block2, err := randomLoginBlock()
		if err != nil {
			return "", err
		}
		code := fmt.Sprintf("ZT-%s-%s", block1, block2)

		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("login_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return FallbackLoginCode(), nil
}

func randomLoginBlock() (string, error) {
	var b strings.Builder
	for i := 0; i < 3; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(loginCodeAlphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(loginCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// FallbackLoginCode is the collision escape hatch: ZT- plus the first eight
// hex characters of a fresh UUID, upper-cased.
func FallbackLoginCode() string {
	compact := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ZT-" + strings.ToUpper(compact[:8])
}

// NextDocumentCode atomically reserves the next sequence number for the
// category in the current year. The single UPDATE ... next_seq + 1 holds a
// row lock until commit, so concurrent creations cannot hand out duplicates;
// first use of a (category, year) pair creates the counter row, retrying once
// if a concurrent writer created it first.
func (s *CodeService) NextDocumentCode(ctx context.Context, category models.DocumentCategory) (string, error) {
	year := time.Now().UTC().Year()

	var sequence int
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for attempt := 0; ; attempt++ {
			res := tx.Model(&models.DocumentSequence{}).
				Where("category = ? AND year = ?", category, year).
				Update("next_seq", gorm.Expr("next_seq + 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				var row models.DocumentSequence
				if err := tx.Where("category = ? AND year = ?", category, year).First(&row).Error; err != nil {
					return err
				}
				sequence = row.NextSeq
				return nil
			}

			created := tx.Create(&models.DocumentSequence{Category: category, Year: year, NextSeq: 1})
			if created.Error == nil {
				sequence = 1
				return nil
			}
			if attempt > 0 {
				return created.Error
			}
			// Lost the first-use race; the winner's row exists now, increment it.
		}
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%d-%03d", category.CodePrefix(), year, sequence), nil
}
