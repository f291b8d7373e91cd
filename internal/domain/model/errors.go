package model

import "ai-coding-tasks/internal/domain"

func errValidation(msg string) error {
	return domain.E(domain.KindValidation, msg, nil)
}
