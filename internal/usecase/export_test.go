package usecase

import "time"

func SetReconcilerClock(r *Reconciler, now func() time.Time) { r.now = now }

func SetDunningClock(s *DunningService, now func() time.Time) { s.now = now }

func SetSelfServiceClock(u *SelfServiceUsecase, now func() time.Time) { u.now = now }

func SetRefundClock(u *RefundUsecase, now func() time.Time) { u.now = now }
