package payment

import (
	"github.com/smallbiznis/enrollpay/internal/payment/adapters"
	"github.com/smallbiznis/enrollpay/internal/payment/adapters/paystack"
	paymentdomain "github.com/smallbiznis/enrollpay/internal/payment/domain"
	"github.com/smallbiznis/enrollpay/internal/payment/repository"
	paymentservice "github.com/smallbiznis/enrollpay/internal/payment/service"
	"github.com/smallbiznis/enrollpay/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			paystack.NewFactory(),
		)
	}),
	fx.Provide(adapters.NewGateway),
	fx.Provide(paymentservice.NewService),
	fx.Provide(func(svc *paymentservice.Service) paymentdomain.Service { return svc }),
	fx.Provide(webhook.NewService),
)
