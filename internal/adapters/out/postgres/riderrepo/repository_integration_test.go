package riderrepo_test

import (
	"context"
	"testing"

	"dispatch/internal/adapters/out/postgres/pgtest"
	"dispatch/internal/adapters/out/postgres/riderrepo"
	"dispatch/internal/core/ports"

	"github.com/stretchr/testify/suite"
)

// RiderRepositoryIntegrationTestSuite runs the rider repository against a migrated postgres.
type RiderRepositoryIntegrationTestSuite struct {
	suite.Suite
	database *pgtest.Database
}

func TestRiderRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	suite.Run(t, new(RiderRepositoryIntegrationTestSuite))
}

func (suite *RiderRepositoryIntegrationTestSuite) SetupSuite() {
	database, err := pgtest.Start(context.Background())
	suite.Require().NoError(err)
	suite.database = database
}

func (suite *RiderRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.database != nil {
		suite.Require().NoError(suite.database.Terminate(context.Background()))
	}
}

func (suite *RiderRepositoryIntegrationTestSuite) TestRepository() {
	runRepositoryTests(suite.T(), func(t *testing.T) ports.RiderRepository {
		suite.Require().NoError(suite.database.Truncate("riders"))
		return riderrepo.NewGormRiderRepository(suite.database.DB)
	})
}
