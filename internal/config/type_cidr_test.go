package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/voidcheck/voidcheck/internal/config"
)

type typeCIDRTestStruct struct {
	Value config.TypeCIDR `json:"value"`
}

type TypeCIDRTestSuite struct {
	suite.Suite
}

func (suite *TypeCIDRTestSuite) TestUnmarshalFail() {
	testData := []string{
		"",
		"10.0.0",
		"10.0.0.0/33",
		"hello/8",
		"::1/129",
	}

	for _, v := range testData {
		data, err := json.Marshal(map[string]string{
			"value": v,
		})
		suite.NoError(err)

		suite.T().Run(v, func(t *testing.T) {
			assert.Error(t, json.Unmarshal(data, &typeCIDRTestStruct{}))
		})
	}
}

func (suite *TypeCIDRTestSuite) TestUnmarshalOk() {
	testData := map[string]string{
		"10.0.0.0/8":    "10.0.0.0/8",
		"10.1.2.3/8":    "10.0.0.0/8",
		"192.168.1.1":   "192.168.1.1/32",
		"2001:db8::/32": "2001:db8::/32",
		"::1":           "::1/128",
	}

	for k, v := range testData {
		value := v

		data, err := json.Marshal(map[string]string{
			"value": k,
		})
		suite.NoError(err)

		suite.T().Run(k, func(t *testing.T) {
			testStruct := &typeCIDRTestStruct{}

			assert.NoError(t, json.Unmarshal(data, testStruct))
			assert.Equal(t, value, testStruct.Value.String())
		})
	}
}

func (suite *TypeCIDRTestSuite) TestMarshalOk() {
	testStruct := &typeCIDRTestStruct{}

	suite.NoError(testStruct.Value.Set("127.0.0.1"))

	data, err := json.Marshal(testStruct)
	suite.NoError(err)
	suite.JSONEq(`{"value": "127.0.0.1/32"}`, string(data))
}

func (suite *TypeCIDRTestSuite) TestContains() {
	value := config.TypeCIDR{}

	suite.NoError(value.Set("172.16.0.0/12"))
	suite.True(value.Value.Contains([]byte{172, 20, 1, 1}))
	suite.False(value.Value.Contains([]byte{172, 32, 1, 1}))
}

func TestTypeCIDR(t *testing.T) {
	t.Parallel()
	suite.Run(t, &TypeCIDRTestSuite{})
}
