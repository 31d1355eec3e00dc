package config_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/voidcheck/voidcheck/internal/config"
	"github.com/voidcheck/voidcheck/voidlib"
)

type typeThresholdTestStruct struct {
	Value config.TypeThreshold `json:"value"`
}

type TypeThresholdTestSuite struct {
	suite.Suite
}

func (suite *TypeThresholdTestSuite) TestUnmarshalFail() {
	testData := []string{
		`""`,
		`"10"`,
		`-2`,
		`1.5`,
		`99999999999`,
	}

	for _, v := range testData {
		data := []byte(`{"value": ` + v + `}`)

		suite.T().Run(v, func(t *testing.T) {
			assert.Error(t, json.Unmarshal(data, &typeThresholdTestStruct{}))
		})
	}
}

func (suite *TypeThresholdTestSuite) TestUnmarshalOk() {
	testData := map[string]voidlib.Threshold{
		"-1":  voidlib.ThresholdDisabled,
		"0":   0,
		"129": 129,
	}

	for k, v := range testData {
		value := v
		data := []byte(`{"value": ` + k + `}`)

		suite.T().Run(k, func(t *testing.T) {
			testStruct := &typeThresholdTestStruct{}

			assert.NoError(t, json.Unmarshal(data, testStruct))
			assert.Equal(t, value, testStruct.Value.Get(42))
		})
	}
}

func (suite *TypeThresholdTestSuite) TestMarshalOk() {
	testStruct := &typeThresholdTestStruct{}

	suite.NoError(testStruct.Value.Set("-1"))

	data, err := json.Marshal(testStruct)
	suite.NoError(err)
	suite.JSONEq(`{"value": -1}`, string(data))
}

func (suite *TypeThresholdTestSuite) TestGet() {
	value := config.TypeThreshold{}
	suite.EqualValues(49, value.Get(49))

	suite.NoError(value.Set("0"))
	suite.EqualValues(0, value.Get(49))
}

func TestTypeThreshold(t *testing.T) {
	t.Parallel()
	suite.Run(t, &TypeThresholdTestSuite{})
}
