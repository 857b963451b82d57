package bulkimport

import (
	"errors"
	"strings"
	"testing"

	"github.com/smallbiznis/microgrid/internal/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHouseholds(t *testing.T) {
	input := "customer_id,hh_name,hamlet,state,district,block,gp,village,vec_name,meter_num,extra\n" +
		"39,Albert Ekka, Saraipani ,Jharkhand,Dumka,Kurdeg,Barkibiura,Saraipani,Prakash Saur Oorja Samiti,M12345,x\n" +
		"3,Anand Toppo,Saraipani,Jharkhand,Dumka,Kurdeg,Barkibiura,Saraipani,Prakash Saur Oorja Samiti,,\n"

	rows, err := ParseHouseholds(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "39", rows[0].CustomerID)
	assert.Equal(t, "Saraipani", rows[0].Hamlet)
	assert.Equal(t, "M12345", rows[0].MeterNum)
	assert.Empty(t, rows[1].MeterNum)
}

func TestParseHouseholdsRejectsMissingKey(t *testing.T) {
	input := "customer_id,hh_name,hamlet\n39,Albert Ekka,Saraipani\n,Nobody,Saraipani\n"

	_, err := ParseHouseholds(strings.NewReader(input))
	require.Error(t, err)
	assert.True(t, errors.Is(err, lifecycle.ErrValidation))
	assert.Contains(t, err.Error(), "row 2")
}

func TestParseVECs(t *testing.T) {
	input := "hamlet,vec_name,state,district,block,gp,village,microgrid_id\n" +
		"Saraipani,Prakash Saur Oorja Samiti,Jharkhand,Dumka,Kurdeg,Barkibiura,Saraipani,MG-SARAIPANI\n"

	rows, err := ParseVECs(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "MG-SARAIPANI", rows[0].MicrogridID)

	_, err = ParseVECs(strings.NewReader("hamlet,vec_name\n,Samiti\n"))
	assert.True(t, errors.Is(err, lifecycle.ErrValidation))
}
