package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Store --dir ../domain/match --output domain/match --outpkg matchmock --filename store_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name FixtureProvider --dir ../domain/match --output domain/match --outpkg matchmock --filename fixture_provider_mock.go
