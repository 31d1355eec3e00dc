package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/voidcheck/voidcheck/internal/config"
)

type typeHostPortTestStruct struct {
	Value config.TypeHostPort `json:"value"`
}

type TypeHostPortTestSuite struct {
	suite.Suite
}

func (suite *TypeHostPortTestSuite) TestUnmarshalFail() {
	testData := []string{
		"",
		"127.0.0.1",
		"127.0.0.1:",
		"127.0.0.1:0",
		"127.0.0.1:-1",
		"127.0.0.1:65536",
		"localhost:port",
	}

	for _, v := range testData {
		data, err := json.Marshal(map[string]string{
			"value": v,
		})
		suite.NoError(err)

		suite.T().Run(v, func(t *testing.T) {
			assert.Error(t, json.Unmarshal(data, &typeHostPortTestStruct{}))
		})
	}
}

func (suite *TypeHostPortTestSuite) TestUnmarshalOk() {
	testData := map[string]string{
		"127.0.0.1:80":   "127.0.0.1:80",
		":3128":          ":3128",
		"[::1]:443":      "[::1]:443",
		"localhost:9090": "localhost:9090",
	}

	for k, v := range testData {
		value := v

		data, err := json.Marshal(map[string]string{
			"value": k,
		})
		suite.NoError(err)

		suite.T().Run(k, func(t *testing.T) {
			testStruct := &typeHostPortTestStruct{}

			assert.NoError(t, json.Unmarshal(data, testStruct))
			assert.Equal(t, value, testStruct.Value.Get(""))
		})
	}
}

func (suite *TypeHostPortTestSuite) TestMarshalOk() {
	testStruct := &typeHostPortTestStruct{}

	suite.NoError(testStruct.Value.Set("0.0.0.0:25580"))

	data, err := json.Marshal(testStruct)
	suite.NoError(err)
	suite.JSONEq(`{"value": "0.0.0.0:25580"}`, string(data))
}

func (suite *TypeHostPortTestSuite) TestGet() {
	value := config.TypeHostPort{}
	suite.Equal("127.0.0.1:1", value.Get("127.0.0.1:1"))

	suite.NoError(value.Set("127.0.0.1:2"))
	suite.Equal("127.0.0.1:2", value.Get("127.0.0.1:1"))
}

func TestTypeHostPort(t *testing.T) {
	t.Parallel()
	suite.Run(t, &TypeHostPortTestSuite{})
}
