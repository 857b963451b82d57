package entitylock

import "go.uber.org/fx"

var Module = fx.Module("entity.lock",
	fx.Provide(NewRedisClient),
	fx.Provide(NewRedisLocker),
	fx.Provide(NewManager),
	fx.Provide(func(m *Manager) Locker { return m }),
)
