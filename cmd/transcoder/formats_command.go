package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"media-transcoder/internal/media"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "formats",
		Short:       "List supported formats, codecs, and resolutions",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), renderFormats(media.ListOptions()))
			return nil
		},
	}
}

func renderFormats(opts media.Options) string {
	rows := [][]string{}
	for _, format := range opts.Formats {
		rows = append(rows, []string{"format", format, media.MIMEType(format)})
	}
	rows = append(rows,
		[]string{"video codec", strings.Join(opts.VideoCodecs, ", "), ""},
		[]string{"audio codec", strings.Join(opts.AudioCodecs, ", "), ""},
	)
	for _, choice := range opts.Resolutions {
		rows = append(rows, []string{"resolution", choice, describeResolution(choice)})
	}
	return renderTable([]string{"Kind", "Tag", "Details"}, rows, nil)
}

func describeResolution(choice string) string {
	switch choice {
	case media.ResolutionSame:
		return "keep source size"
	case media.ResolutionCustom:
		return "uses --custom-resolution WxH"
	}
	res, err := media.ParseResolution(choice, "")
	if err != nil {
		return ""
	}
	return res.String()
}
