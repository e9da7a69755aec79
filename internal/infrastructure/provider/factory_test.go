package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Radamanths/Irina-online-school-sub000/internal/config"
	"github.com/Radamanths/Irina-online-school-sub000/internal/domain/model"
)

func TestFactoryRegistersEveryProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.Service.FrontendURL = "https://school.test"
	cfg.Providers.Timeout = time.Second

	f := NewFactory(cfg, zap.NewNop())
	for _, pt := range model.ProviderTypes {
		p, err := f.GetProvider(pt)
		require.NoError(t, err, pt)
		assert.Equal(t, pt, p.Type())
	}

	_, err := f.GetProvider("paypal")
	assert.Error(t, err)
}
