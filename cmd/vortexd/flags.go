package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

const (
	roundIdFlagName    = "id"
	beforeDateFlagName = "before-date"
	afterDateFlagName  = "after-date"
	outpointFlagName   = "outpoint"

	dateFormat = time.DateOnly
)

var (
	roundIdFlag = &cli.StringFlag{
		Name:     roundIdFlagName,
		Usage:    "id of the round to get info",
		Required: true,
	}
	beforeDateFlag = &cli.StringFlag{
		Name: beforeDateFlagName,
		Usage: fmt.Sprintf(
			"get ids of rounds started before the given date, must be in %s format", dateFormat,
		),
	}
	afterDateFlag = &cli.StringFlag{
		Name: afterDateFlagName,
		Usage: fmt.Sprintf(
			"get ids of rounds started after the given date, must be in %s format", dateFormat,
		),
	}
	outpointFlag = &cli.StringFlag{
		Name:     outpointFlagName,
		Usage:    "outpoint to unban, as txid:vout",
		Required: true,
	}
)
