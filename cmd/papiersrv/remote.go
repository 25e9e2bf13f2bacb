package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jypelle/papier/internal/srv/controller"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/jypelle/papier/internal/srv/proxy"
	"github.com/spf13/cobra"
)

var (
	remoteAddr    string
	remoteTimeout = proxy.DefaultTimeout
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Drive a running server through its proxy",
}

var showCmd = &cobra.Command{
	Use:   "show [display] [image]",
	Short: "Show a stored image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(args[0], func(c *proxy.ControllerProxy) error {
			if err := c.Display(args[1]); err != nil {
				return err
			}
			img, err := c.FetchCurrentImage()
			if err != nil {
				return err
			}
			return printImage(img)
		})
	},
}

var nextCmd = &cobra.Command{
	Use:   "next [display]",
	Short: "Show the next image of a cycling display",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(args[0], func(c *proxy.ControllerProxy) error {
			img, err := c.DisplayNext()
			if err != nil {
				return err
			}
			return printImage(img)
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear [display]",
	Short: "Blank a display",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(args[0], func(c *proxy.ControllerProxy) error {
			return c.Clear()
		})
	},
}

var currentCmd = &cobra.Command{
	Use:   "current [display]",
	Short: "Describe the display and its current image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(args[0], func(c *proxy.ControllerProxy) error {
			summary, err := c.Summary()
			if err != nil {
				return err
			}
			return printJSON(summary)
		})
	},
}

func init() {
	remoteCmd.PersistentFlags().StringVar(&remoteAddr, "addr", "localhost:7443", "Address of the server proxy")
	remoteCmd.PersistentFlags().DurationVar(&remoteTimeout, "timeout", proxy.DefaultTimeout, "Timeout of each call")

	remoteCmd.AddCommand(showCmd)
	remoteCmd.AddCommand(nextCmd)
	remoteCmd.AddCommand(clearCmd)
	remoteCmd.AddCommand(currentCmd)
}

func withController(displayId string, fn func(c *proxy.ControllerProxy) error) error {
	channel, err := proxy.DialGrpc(remoteAddr)
	if err != nil {
		return fmt.Errorf("unable to reach %s: %w", remoteAddr, err)
	}
	client := proxy.NewClient(channel, remoteTimeout)
	defer client.Close()
	return fn(client.Controller(displayId))
}

func printImage(img *media.Image) error {
	if img == nil {
		fmt.Println("No image displayed")
		return nil
	}
	return printJSON(controller.DescribeImage(img))
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
