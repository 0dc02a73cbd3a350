package trust

import "time"

func (svc *Service) SetClock(now func() time.Time) { svc.now = now }

func (svc *Service) SetIDGenerator(newID func() string) { svc.newID = newID }
